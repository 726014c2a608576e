// Package handlers provides HTTP handlers for competitors and their prices.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles competitor HTTP requests
type Handler struct {
	service *competitors.Service
	log     zerolog.Logger
}

// NewHandler creates a new competitors handler
func NewHandler(service *competitors.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "competitors").Logger(),
	}
}

// HandleList returns the user's competitors
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"competitors": list,
		"count":       len(list),
	})
}

// HandleCreate adds a competitor
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req competitors.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, c)
}

// HandleRecordPrice records a competitor's price for one of the user's products
func (h *Handler) HandleRecordPrice(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	competitorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid competitor id", http.StatusBadRequest)
		return
	}

	var req competitors.PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price, err := h.service.RecordPrice(r.Context(), userID, competitorID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, price)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, competitors.ErrInvalidInput), errors.Is(err, products.ErrInvalidPrice):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, competitors.ErrNotFound), errors.Is(err, products.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
