package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

type healthReport struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	LatencyMS int64  `json:"db_latency_ms"`
}

// HealthCheck is the readiness check: 200 when PostgreSQL answers a ping within two seconds.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database unavailable")
		}
		return c.JSON(healthReport{
			Status:    "healthy",
			Database:  "up",
			LatencyMS: time.Since(start).Milliseconds(),
		})
	}
}

// LivenessProbe answers 200 as long as the process serves HTTP.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
