package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Real-time protocols. Client auth happens in-band as the first frame;
	// microcontrollers are trusted lab hardware on a closed network.
	r.Get("/ws/client", s.handleClientWS)
	r.Get("/ws/microcontroller", s.handleDeviceWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Read-only views for dashboards without a live socket.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/settings", s.handleGetSettings)
			r.Route("/models", func(r chi.Router) {
				r.Get("/", s.handleListModels)
				r.Get("/{id}", s.handleGetModel)
				r.Get("/{id}/tests", s.handleListModelTests)
			})
		})
	})

	return r
}

// handleHealth returns the server health status. No auth required so load
// balancers and probes can hit it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.recorder != nil {
		payload["recorder"] = string(s.recorder.Status())
	}
	writeJSON(w, http.StatusOK, payload)
}
