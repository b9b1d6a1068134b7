package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ransomguard/internal/api/handlers"
	apimiddleware "ransomguard/internal/api/middleware"
	"ransomguard/internal/config"
	"ransomguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limits   apimiddleware.RateChecker
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limits may be nil, in which case
// rate limiting is kept per process.
func NewRouter(cfg config.Config, h *handlers.Handlers, limits apimiddleware.RateChecker, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limits:   limits,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(apimiddleware.Metrics)
	router.Use(middleware.Recoverer)

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Probes and scraping are never rate limited
	router.Get("/health", r.handlers.Health.Check)
	router.Get("/ready", r.handlers.Health.Ready)
	router.Method(http.MethodGet, "/metrics", apimiddleware.MetricsHandler())

	// Long-lived connections stay outside the request timeout
	router.Get("/ws/scans", r.handlers.Streaming.HandleWebSocket)

	router.Group(func(app chi.Router) {
		app.Use(middleware.Timeout(60 * time.Second))
		if r.config.RateLimit.Enabled {
			app.Use(apimiddleware.RateLimiter(r.limits, r.config.RateLimit, r.logger))
		}

		// Pages
		app.Get("/", r.handlers.Pages.Dashboard)
		app.Get("/analyze", r.handlers.Pages.AnalyzeForm)
		app.Post("/analyze", r.handlers.Scans.Analyze)
		app.Get("/results/{id}", r.handlers.Pages.Result)
		app.Get("/history", r.handlers.Pages.History)
		app.Get("/quick-scan", r.handlers.Scans.QuickScan)

		// JSON API
		app.Route("/api/v1", func(api chi.Router) {
			api.Get("/scans", r.handlers.Scans.List)
			api.Post("/scans", r.handlers.Scans.Create)
			api.Get("/scans/{id}", r.handlers.Scans.Get)
			api.Get("/stats", r.handlers.Scans.Stats)
			api.Get("/streaming/stats", r.handlers.Streaming.GetStats)
		})

		// Operational endpoints
		app.Route("/admin", func(admin chi.Router) {
			admin.Use(apimiddleware.AdminAuth(r.config.Admin.Token))
			admin.Get("/model", r.handlers.Admin.ModelStatus)
			admin.Post("/model/reload", r.handlers.Admin.ReloadModel)
		})
	})

	return router
}
