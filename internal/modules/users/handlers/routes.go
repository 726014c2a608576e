package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPublicRoutes registers routes that do not require a token
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
	})
}

// RegisterRoutes registers account routes; callers mount them behind the authenticator
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.HandleGetMe)
		r.Put("/", h.HandleUpdateMe)
		r.Post("/password", h.HandleChangePassword)
	})
}
