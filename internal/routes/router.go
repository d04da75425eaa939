package routes

import (
	"net/http"
	"time"

	"fraternitybase/registry/internal/api"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes builds the HTTP handler for the registry API
func RegisterRoutes(deps *api.Dependencies, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logging)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Export-Total", "X-Export-Skipped", "X-Export-Decrypt-Failures"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthCheck", api.HealthCheckHandler(deps.Reader, upSince))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// one roster upload per second per client, bursts of three
	importLimiter := middleware.NewRateLimiter(1, 3, "127.0.0.1")

	RegisterAPIRoutes(r, deps.Metrics, api.NewHandlers(deps), importLimiter)

	logging.Info("Router initialized with metrics and logging middleware")
	return r
}
