package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers competitor routes; callers mount them behind the authenticator
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/competitors", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/{id}/prices", h.HandleRecordPrice)
	})
}
