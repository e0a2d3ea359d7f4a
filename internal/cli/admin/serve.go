package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/jobs"
	"github.com/cloo-solutions/askdocs/internal/logging"
	"github.com/cloo-solutions/askdocs/internal/metrics"
	"github.com/cloo-solutions/askdocs/internal/server"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the askdocs API server.

The passage store, embedding and generation backends are selected through
ASKDOCS_* environment variables. The Postgres schema is migrated on startup
unless --no-migrate is set.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides ASKDOCS_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "", "Migrations directory (overrides ASKDOCS_MIGRATIONS_PATH)")
	cmd.Flags().String("inbox", "", "Directory polled for documents to ingest (overrides ASKDOCS_INBOX_DIR)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if inbox, _ := cmd.Flags().GetString("inbox"); inbox != "" {
		cfg.InboxDir = inbox
	}

	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrationsPath, _ := cmd.Flags().GetString("migrations")

	p, err := buildPipeline(ctx, cfg, logger, pipelineOptions{
		noMigrate:      noMigrate,
		migrationsPath: migrationsPath,
		archive:        true,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	p.gateway.WithObserver(m)
	p.composer.WithObserver(m)

	limiter, stopLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer stopLimiter()

	router := server.NewRouter(server.RouterConfig{
		Logger:          logger,
		DocumentHandler: handlers.NewDocumentHandler(p.indexer, p.store).WithObserver(m),
		AskHandler:      handlers.NewAskHandler(p.ask).WithObserver(m),
		HealthHandler:   handlers.NewHealthHandler(p.store),
		HTTPObserver:    m,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		RateLimiter:     limiter,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		MaxBodyBytes:    cfg.MaxUploadBytes,
	})

	var worker *jobs.Worker
	if cfg.HasInbox() {
		inbox, err := jobs.NewInboxProcessor(cfg.InboxDir, p.indexer, logger)
		if err != nil {
			return err
		}
		worker = jobs.NewWorker(inbox.WithObserver(m), cfg.InboxInterval, logger)
		go worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return logging.WithLogger(context.Background(), logger)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("store", cfg.StoreBackend),
			slog.String("embedding_provider", cfg.EmbeddingProvider),
			slog.String("generation_provider", cfg.GenerationProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	}).With(slog.String("service", "askdocs"))
}

// initTelemetry starts Sentry when a DSN is configured. Failures are logged
// and the server continues without tracing.
func initTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	if !cfg.HasSentry() {
		return func() {}
	}

	// 10% sampling outside development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", slog.String("error", err.Error()))
		return func() {}
	}
	return shutdown
}
