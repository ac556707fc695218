package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rtodocs/internal/http/middleware"
	"rtodocs/internal/model"
	"rtodocs/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// auth must store a model.Caller in locals (see middleware.Auth); gatherer backs /metrics.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, auth fiber.Handler, gatherer prometheus.Gatherer) {
	app.Get("/swagger/*", Swagger())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	documents := app.Group("/documents", auth)
	documents.Post("/upload", UploadDocument(docSvc))
	documents.Get("/my", MyDocuments(docSvc))
	documents.Get("/entity/:entityId", EntityDocuments(docSvc))
	documents.Put("/:id/verify", middleware.RequireRoles(model.RoleRTOOfficer, model.RoleRTOAdmin), VerifyDocument(docSvc))
	documents.Get("/:id/download", DownloadDocument(docSvc))
	documents.Delete("/:id", DeleteDocument(docSvc))
}
