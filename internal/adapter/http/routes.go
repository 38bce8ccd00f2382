package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the API routes on the given chi router. The health
// endpoint is mounted alongside the rest; the auth middleware exempts it by
// path.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Post("/events", h.HandleIngest)
		r.Get("/snapshot", h.HandleSnapshot)
		r.Get("/history", h.HandleHistory)
	})
}
