// Package app wires configuration, services, transport and the websocket
// hub into a runnable dashboard server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"demcli/internal/config"
	"demcli/internal/errors"
	"demcli/internal/history"
	"demcli/internal/infrastructure"
	customMiddleware "demcli/internal/middleware"
	"demcli/internal/services"
	handlers "demcli/internal/transport/http"
	ws "demcli/internal/websocket"
)

const (
	Version = "1.4.0"
	AppName = "Demurrage Control Dashboard"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	DashboardService *services.DashboardService
	Metrics          *handlers.Metrics
	Logger           *slog.Logger
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("data_dir", cfg.GetDataDir()))

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	a.WebSocketHub = hub

	store, err := history.NewStore(a.Config.GetDataDir(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}

	svc := services.NewDashboardService(store, hub, a.Logger)
	if err := svc.LoadFromDisk(context.Background()); err != nil {
		// A corrupt or missing dataset must not keep the server down.
		a.Logger.Warn("Could not restore persisted dataset",
			slog.String("error", err.Error()))
	}
	a.DashboardService = svc

	a.Metrics = handlers.NewMetrics()
	a.Metrics.SetRecordCount(svc.RecordCount())

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that won't interfere with the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route stays outside the full middleware chain.
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(a.WebSocketHub, w, req, a.Logger)
	})

	// Prometheus scrape endpoint, also outside the chain.
	r.Handle("/metrics", a.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.Metrics.Middleware)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				ExposedHeaders: []string{"X-Request-ID"},
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.DashboardService, a.Logger, Version)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)

		// Browser-side log forwarding.
		r.Post("/logs", handlers.NewClientLogHandler(a.Logger).Handle)

		errorHandler := errors.NewErrorHandler(a.Logger, false)
		dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Logger, errorHandler, a.Metrics)
		r.Mount("/", dashboardHandler.Routes())
	})
}

// setupStaticRoutes serves the dashboard frontend from the web directory.
// Unmatched non-API routes fall back to index.html for client-side routing.
func (a *Application) setupStaticRoutes(r chi.Router) {
	webDir := a.Config.GetWebDir()
	if _, err := os.Stat(webDir); err != nil {
		a.Logger.Warn("Web directory not found, frontend disabled",
			slog.String("path", webDir))
		return
	}

	fileServer := http.FileServer(http.Dir(webDir))
	index := filepath.Join(webDir, "index.html")

	r.With(customMiddleware.Compress(5)).Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			http.NotFound(w, req)
			return
		}

		candidate := filepath.Join(webDir, filepath.Clean(req.URL.Path))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, req)
			return
		}

		http.ServeFile(w, req, index)
	})
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

// Run starts the application and blocks until shutdown completes.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("Server listening",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops the server and background services gracefully.
func (a *Application) shutdown() error {
	a.Logger.Info("Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.Error("Failed to close log file", slog.String("error", err.Error()))
	}

	return nil
}
