package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/portsense/portsense/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.log, s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer(s.log))

	// API v1 routes, all behind the identity header
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Route("/containers", func(r chi.Router) {
			r.Get("/", s.listContainers)
			r.Get("/stream", s.streamContainers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getContainer)
				r.Patch("/", s.patchContainer)
				r.Get("/history", s.containerHistory)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listAlerts)
			r.Get("/stats", s.alertStats)
			r.Post("/acknowledge", s.bulkAcknowledgeAlerts)
			r.Post("/{id}/acknowledge", s.acknowledgeAlert)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Put("/{id}", s.updateRule)
		})

		r.Post("/monitor/run", s.runMonitorCycle)
		r.Get("/monitor/status", s.monitorStatus)
	})

	// Health check (public)
	r.Get("/health", s.health)

	return r
}
