package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers dashboard routes; callers mount them behind the authenticator
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.HandleGetStats)
		r.Get("/data", h.HandleGetData)
	})
}
