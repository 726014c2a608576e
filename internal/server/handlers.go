package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports liveness and whether every database passes a quick check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	databases := make(map[string]string)
	status, code := "healthy", http.StatusOK
	for _, db := range s.container.Databases() {
		if err := db.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Health check failed")
			databases[db.Name()] = "unavailable"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		databases[db.Name()] = "ok"
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "pricepoint",
		"databases": databases,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
