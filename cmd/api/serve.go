package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"safetyagent/docs"
	"safetyagent/internal/allowlist"
	"safetyagent/internal/database"
	"safetyagent/internal/database/migration"
	"safetyagent/internal/extractor"
	handlers "safetyagent/internal/http/handler"
	"safetyagent/internal/http/middleware"
	"safetyagent/internal/metrics"
	"safetyagent/internal/otel"
	"safetyagent/internal/repository/postgres"
	"safetyagent/internal/service"
	"safetyagent/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("tracing_init_failed", zap.Error(err))
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Error("database_connect_failed", zap.Error(err))
		return err
	}
	defer db.Close()

	if err := migration.Up(db, log); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Error("storage_init_failed", zap.Error(err))
		return fmt.Errorf("init object storage: %w", err)
	}

	allow, err := allowlist.Load(cfg.Agent.AllowListPath)
	if err != nil {
		log.Error("allowlist_load_failed", zap.String("path", cfg.Agent.AllowListPath), zap.Error(err))
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	workflowMetrics, err := metrics.NewWorkflow(reg)
	if err != nil {
		return fmt.Errorf("register workflow metrics: %w", err)
	}

	gate := service.NewWriteGate(allow)
	docSvc := service.NewDocumentService(
		objStore,
		postgres.NewDocumentPostgres(db),
		log,
		time.Duration(cfg.Agent.PresignExpirySec)*time.Second,
	)
	auditSvc := service.NewAuditService(postgres.NewAuditPostgres(db))
	proposalSvc := service.NewProposalService(postgres.NewProposalPostgres(db), gate, auditSvc, workflowMetrics, log)
	agentSvc := service.NewAgentService(extractor.NewKeywordExtractor(nil), docSvc, proposalSvc, gate, log)

	app := fiber.New(fiber.Config{
		AppName:               "safetyagent",
		BodyLimit:             cfg.Agent.MaxUploadBytes,
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: cfg.Environment == "production",
	})

	// A panic in one handler becomes a 500 for that request only.
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Environment != "production"}))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        db,
		Agent:     agentSvc,
		Proposals: proposalSvc,
		Documents: docSvc,
		AllowList: allow,
		Log:       log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting",
			zap.String("addr", addr),
			zap.String("env", cfg.Environment),
			zap.Strings("collections", allow.Names()),
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server_failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("server_shutdown_failed", zap.Error(err))
	}
	return nil
}
