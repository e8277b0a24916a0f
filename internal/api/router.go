package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverPanics)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/availability", func(r chi.Router) {
			r.Post("/batch", s.handleBatchAvailability)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAvailability)
				r.Patch("/", s.handlePatchAvailability)
				r.Delete("/", s.handleDeleteAvailability)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
