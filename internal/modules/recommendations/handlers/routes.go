package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers recommendation routes; callers mount them behind the authenticator
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/{uuid}/reject", h.HandleReject)
	})
}
