package routes

import (
	"fraternitybase/registry/internal/api"
	"fraternitybase/registry/internal/metrics"
	"fraternitybase/registry/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, metricsReg *metrics.MetricsRegistry, handlers *api.Handlers, importLimiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.InFlightMiddleware(metricsReg))

		v1.Route("/imports", func(imports chi.Router) {
			imports.With(importLimiter.Middleware).Post("/", handlers.ImportRosterHandler())
			imports.Get("/", handlers.ListImportsHandler())
			imports.Get("/{id}", handlers.GetImportHandler())
		})

		v1.Get("/export", handlers.ExportHandler())
		v1.Post("/universities", handlers.LoadUniversitiesHandler())
		v1.Post("/chapters/link", handlers.LinkChapterHandler())
		v1.Get("/chapters/{name}/stats", handlers.ChapterStatsHandler())
	})
}
