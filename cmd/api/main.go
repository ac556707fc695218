package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rtodocs/internal/cache"
	"rtodocs/internal/config"
	"rtodocs/internal/database"
	"rtodocs/internal/database/migration"
	handlers "rtodocs/internal/http/handler"
	"rtodocs/internal/http/middleware"
	"rtodocs/internal/otel"
	"rtodocs/internal/repository/postgres"
	"rtodocs/internal/service"
	"rtodocs/internal/storage"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file limit.
const multipartOverhead = 1 << 20

// @title						RTO Document API
// @version					1.0
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "rtodocs"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	objStore, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	docMetrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	opts := service.Options{
		MaxUploadBytes:   cfg.Upload.MaxBytes,
		AllowedMIMETypes: cfg.Upload.AllowedMIMETypes,
		FallbackTypes:    cfg.Upload.ReviewFallbackTypes(),
		ListCacheTTL:     cfg.Redis.ListTTL(),
		Notifier:         postgres.NewNotificationPostgres(db),
		Metrics:          docMetrics,
		Logger:           logger,
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// The cache is an optimization; run without it.
			logger.Warn("redis unavailable, document list cache disabled", slog.String("error", err.Error()))
		} else {
			defer rc.Close()
			opts.Cache = rc
		}
	}

	docSvc := service.NewDocumentService(objStore, postgres.NewDocumentPostgres(db), postgres.NewEntityPostgres(db), opts)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxBytes) + multipartOverhead,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(loc))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, db, docSvc, middleware.Auth(cfg.Auth.JWTSecret), reg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("starting server", slog.String("addr", addr), slog.String("storage", cfg.Storage.Driver))

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func newStorage(ctx context.Context, cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMinIO:
		return storage.NewMinIO(ctx, cfg.MinIO)
	case config.StorageLocal:
		return storage.NewLocal(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}
