package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/VaishakhVipin/stattwin/internal/config"
	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/infrastructure"
	"github.com/VaishakhVipin/stattwin/internal/league"
	customMiddleware "github.com/VaishakhVipin/stattwin/internal/middleware"
	"github.com/VaishakhVipin/stattwin/internal/preprocess"
	"github.com/VaishakhVipin/stattwin/internal/services"
	handlers "github.com/VaishakhVipin/stattwin/internal/transport/http"
)

const (
	// sweepInterval is how often idle rate limiter buckets are dropped.
	sweepInterval = time.Minute
	// runtimeInterval is the runtime metrics sampling period.
	runtimeInterval = 15 * time.Second
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	RateLimiter   *customMiddleware.RateLimiter

	runtime      *infrastructure.RuntimeCollector
	errorHandler *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Similarity *services.SimilarityService
	Leagues    *services.LeagueService
	Health     *services.HealthService
}

// NewApplication loads configuration from the file and environment and
// builds the application around the global logger.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New builds an application from an explicit configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	collector, err := infrastructure.NewRuntimeCollector(otelProviders.Meter, runtimeInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime collector: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		runtime:       collector,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices wires the services and loads the configured dataset.
// A missing or unreadable dataset leaves the server running but not ready.
func (a *Application) initializeServices(ctx context.Context) error {
	pipeline, err := preprocess.NewPipeline(a.Config.Pipeline.Preprocess(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create preprocessing pipeline: %w", err)
	}

	registry := league.Default()
	if file := a.Config.Data.LeaguesFile; file != "" {
		n, err := registry.LoadFile(a.Paths.GetDataPath(file))
		if err != nil {
			return fmt.Errorf("failed to load league catalogue: %w", err)
		}
		a.Logger.InfoContext(ctx, "League catalogue extended",
			slog.String("file", file),
			slog.Int("added", n))
	}

	similarityService := services.NewSimilarityService(pipeline, registry, a.Config.Ranking, a.Logger,
		services.WithMetrics(a.Metrics),
		services.WithCache(nil, a.Config.Data.CacheMaxAge),
	)

	if source := a.Config.Data.Source; source != "" {
		path := a.Paths.GetDataPath(source)
		if _, err := similarityService.LoadFile(ctx, path, a.Config.Data.Sheet); err != nil {
			a.Logger.WarnContext(ctx, "Dataset not loaded, server will report not ready",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	a.Services = &ServiceContainer{
		Similarity: similarityService,
		Leagues:    services.NewLeagueService(registry, a.Logger),
		Health:     services.NewHealthService(config.AppVersion, similarityService, a.Logger),
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.Tracing(infrastructure.ServiceName))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.Metrics(a.Metrics))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
		r.Use(customMiddleware.Compress(5))

		if rl := a.Config.RateLimit; rl.Enabled {
			a.RateLimiter = customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger)
			r.Use(a.RateLimiter.Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrapes outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	// Set last so every mounted subrouter picks them up
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger, config.MaxBodyBytes)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Route("/v1", func(r chi.Router) {
			leagueHandler := handlers.NewLeagueHandler(a.Services.Leagues, a.Logger, a.errorHandler)
			r.Mount("/leagues", leagueHandler.Routes())

			similarityHandler := handlers.NewSimilarityHandler(a.Services.Similarity, validator, a.Logger, a.errorHandler)
			r.Mount("/", similarityHandler.Routes())
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the server and background collectors. A listen failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("base_dir", a.Paths.BaseDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("cache_dir", a.Paths.CacheDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	go a.runtime.Start(ctx)
	if a.RateLimiter != nil {
		go a.sweepRateLimiter(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

func (a *Application) sweepRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := a.RateLimiter.Sweep(); n > 0 {
				a.Logger.DebugContext(ctx, "Rate limiter swept idle clients", slog.Int("removed", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.runtime.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// The run context may already be cancelled
	return a.Stop(context.Background())
}

// performStartupHealthCheck checks that working directories are writable and
// a dataset is loaded.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Reports": a.Paths.ReportsDir,
		"Cache":   a.Paths.CacheDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if h := a.Services.Similarity.DatasetHealth(); h == nil || h.Rows == 0 {
		warnings = append(warnings, "no dataset loaded")
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
