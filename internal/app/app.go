package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/robfig/cron/v3"

	"meralcocli/internal/backfill"
	"meralcocli/internal/config"
	apierrors "meralcocli/internal/errors"
	"meralcocli/internal/fetch"
	"meralcocli/internal/infrastructure"
	customMiddleware "meralcocli/internal/middleware"
	"meralcocli/internal/pdf"
	"meralcocli/internal/store"
	handlers "meralcocli/internal/transport/http"
	"meralcocli/pkg/contracts"
)

// AppName identifies the process in logs and startup output.
const AppName = "meralco-rates"

// seedTimeout bounds the startup refresh. Discovery plus one PDF fetch
// normally lands in seconds; anything past this means the source site
// is unreachable and the API should keep serving degraded.
const seedTimeout = 2 * time.Minute

// Application is the serve-mode container: the extraction pipeline, the
// payload store it fills, and the HTTP surface that reads from it.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Store         *store.Store
	Orchestrator  *backfill.Orchestrator
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics

	cron *cron.Cron
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", cfg.Serve.Addr))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.initializePipeline()
	app.setupRouter()
	app.createServer()

	if cfg.Serve.RefreshEnabled {
		if err := app.setupRefreshJob(); err != nil {
			return nil, fmt.Errorf("failed to schedule refresh job: %w", err)
		}
	}

	return app, nil
}

// initializePipeline wires the fetch/extract pipeline and the store the
// handlers read from.
func (a *Application) initializePipeline() {
	client := fetch.NewClient(a.Config, a.Logger, fetch.WithMetrics(a.Metrics))
	cells := pdf.NewTextExtractor(a.Logger)
	processor := backfill.NewProcessor(a.Config, cells, a.Logger, a.Metrics)

	a.Orchestrator = backfill.NewOrchestrator(a.Config, client, processor, a.Logger, a.Metrics)
	a.Store = store.New(a.Logger)
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Ordering: RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		r.Use(otelMiddleware.Handler)

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))

		errorHandler := apierrors.NewHandler(a.Logger)
		ratesHandler := handlers.NewRatesHandler(a.Store, a.Logger, errorHandler)
		healthHandler := handlers.NewHealthHandler(a.Store, a.Logger)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(customMiddleware.Timeout(a.Config.Serve.ReadTimeout, a.Logger))
			r.Use(customMiddleware.Compress(5))

			r.Mount("/rates", ratesHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		r.Get("/healthz", healthHandler.HealthCheck)
	})

	// Prometheus exposition stays outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer builds the HTTP server from the serve config.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Serve.Addr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.Serve.ReadTimeout,
		WriteTimeout: a.Config.Serve.WriteTimeout,
	}
}

// setupRefreshJob schedules the periodic store refresh.
func (a *Application) setupRefreshJob() error {
	c := cron.New(cron.WithLogger(
		cron.VerbosePrintfLogger(slog.NewLogLogger(a.Logger.Handler(), slog.LevelDebug))))

	_, err := c.AddFunc(a.Config.Serve.RefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()

		if err := a.RefreshLatest(ctx); err != nil {
			a.Logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}

	a.cron = c
	return nil
}

// RefreshLatest runs the pipeline for the newest publication and stores
// the result. Unchanged source bytes leave the store untouched.
func (a *Application) RefreshLatest(ctx context.Context) error {
	payload, err := a.Orchestrator.RunLatest(ctx)
	if err != nil {
		return err
	}

	if a.Store.Put(payload) {
		a.Logger.InfoContext(ctx, "store refreshed",
			slog.String("period", payload.Period.String()),
			slog.Int("brackets", len(payload.Rates)))
	} else {
		a.Logger.InfoContext(ctx, "store already current",
			slog.String("period", payload.Period.String()))
	}
	return nil
}

// Start starts the server, the startup seed and the refresh schedule.
// A listener error cancels the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", a.Config.Serve.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Seed the store without blocking startup; /healthz reports
	// degraded until the first payload lands.
	go func() {
		seedCtx, seedCancel := context.WithTimeout(ctx, seedTimeout)
		defer seedCancel()

		if err := a.RefreshLatest(seedCtx); err != nil {
			a.Logger.ErrorContext(seedCtx, "startup seed failed",
				slog.String("error", err.Error()))
		}
	}()

	if a.cron != nil {
		a.cron.Start()
		a.Logger.InfoContext(ctx, "refresh schedule started",
			slog.String("spec", a.Config.Serve.RefreshSpec))
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://%s", a.Server.Addr)))
	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Serve.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.cron != nil {
		// Wait for a running refresh to finish, bounded by the
		// shutdown budget.
		select {
		case <-a.cron.Stop().Done():
		case <-shutdownCtx.Done():
			a.Logger.WarnContext(ctx, "refresh job still running at shutdown deadline")
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "context canceled, shutting down")
	}

	return a.Stop(context.Background())
}
