package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers product routes; callers mount them behind the authenticator
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/recommend", h.HandleRecommend)
			r.Post("/price", h.HandleUpdatePrice)
			r.Post("/sales", h.HandleRecordSale)
			r.Get("/features", h.HandleGetFeatures)
			r.Get("/chart", h.HandleGetChart)
		})
	})
}
