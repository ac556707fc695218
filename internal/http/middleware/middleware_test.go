package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtodocs/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID string, role model.Role) Claims {
	return Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func readBody(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when absent", incoming: "", keep: false},
		{name: "caller id preserved", incoming: "test-id-123", keep: true},
		{name: "gateway style id preserved", incoming: "edge.1:abc_DEF", keep: true},
		{name: "id with spaces replaced", incoming: "bad id", keep: false},
		{name: "id with quotes replaced", incoming: `x"}{"admin":true`, keep: false},
		{name: "oversized id replaced", incoming: strings.Repeat("a", 65), keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			got := resp.Header.Get(RequestIDHeader)
			assert.Equal(t, got, readBody(t, resp.Body))
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
				return
			}
			assert.NotEqual(t, tt.incoming, got)
			assert.NoError(t, uuid.Validate(got))
		})
	}
}

func TestRequestIDFrom_WithoutMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("[" + RequestIDFrom(c) + "]")
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", readBody(t, resp.Body))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.UTC
	}

	app := fiber.New()
	app.Use(RequestID())
	app.Use(LoggerWithWriter(&buf, loc))
	app.Get("/documents/my", func(c *fiber.Ctx) error {
		c.Locals(CallerLocalKey, model.Caller{UserID: "u-1", Role: model.RoleCitizen})
		return c.SendStatus(fiber.StatusAccepted)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/documents/my?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))

	assert.Equal(t, resp.Header.Get(RequestIDHeader), logData["request_id"])
	assert.Equal(t, "GET", logData["method"])
	assert.Equal(t, "/documents/my", logData["path"])
	assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
	assert.Equal(t, "u-1", logData["user_id"])
	assert.NotNil(t, logData["latency"])
	assert.NotContains(t, logData, "trace_id")

	ts, err := time.Parse(time.RFC3339, logData["ts"].(string))
	require.NoError(t, err)
	_, offset := ts.Zone()
	_, wantOffset := time.Now().In(loc).Zone()
	assert.Equal(t, wantOffset, offset)
}

func TestLogger_RecordsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, nil))
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "already processed")
	})

	_, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
	assert.Equal(t, float64(fiber.StatusConflict), logData["status"])
}

func TestAuth(t *testing.T) {
	app := fiber.New()
	app.Use(Auth(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(caller.UserID + "|" + string(caller.Role))
	})

	expired := validClaims("u-1", model.RoleCitizen)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims("u-1", model.RoleCitizen)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid citizen token",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("u-1", model.RoleCitizen)),
			wantStatus: fiber.StatusOK,
			wantBody:   "u-1|CITIZEN",
		},
		{
			name:       "scheme is case insensitive",
			header:     "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("o-1", model.RoleRTOOfficer)),
			wantStatus: fiber.StatusOK,
			wantBody:   "o-1|RTO_OFFICER",
		},
		{name: "missing header", wantStatus: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantStatus: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: fiber.StatusUnauthorized},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, validClaims("u-1", model.RoleCitizen)),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "unexpected algorithm",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("u-1", model.RoleCitizen)),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, expired),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "token without expiry",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noExpiry),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "unknown role",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("u-1", "SUPERUSER")),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "missing user id",
			header:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("", model.RoleCitizen)),
			wantStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, readBody(t, resp.Body))
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	withCaller := func(caller *model.Caller) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if caller != nil {
				c.Locals(CallerLocalKey, *caller)
			}
			return c.Next()
		}
	}

	tests := []struct {
		name       string
		caller     *model.Caller
		wantStatus int
	}{
		{"officer allowed", &model.Caller{UserID: "o", Role: model.RoleRTOOfficer}, fiber.StatusOK},
		{"admin allowed", &model.Caller{UserID: "a", Role: model.RoleRTOAdmin}, fiber.StatusOK},
		{"police rejected", &model.Caller{UserID: "p", Role: model.RolePolice}, fiber.StatusForbidden},
		{"citizen rejected", &model.Caller{UserID: "c", Role: model.RoleCitizen}, fiber.StatusForbidden},
		{"unauthenticated", nil, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/review", withCaller(tt.caller), RequireRoles(model.RoleRTOOfficer, model.RoleRTOAdmin), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/review", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
