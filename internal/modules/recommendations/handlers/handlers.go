// Package handlers provides HTTP handlers for recommendations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Handler handles recommendation HTTP requests
type Handler struct {
	service *recommendations.Service
	log     zerolog.Logger
}

// NewHandler creates a new recommendations handler
func NewHandler(service *recommendations.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "recommendations").Logger(),
	}
}

// HandleList returns the user's latest recommendations (?limit=N)
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxListLimit)
	}

	list, err := h.service.ListRecent(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": list,
		"count":           len(list),
	})
}

// HandleReject marks a pending recommendation as rejected
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rec, err := h.service.Reject(r.Context(), userID, chi.URLParam(r, "uuid"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommendations.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, recommendations.ErrInvalidStatusTransition):
		http.Error(w, err.Error(), http.StatusConflict)
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
