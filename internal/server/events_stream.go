package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/users"
)

// heartbeatInterval keeps idle streams from being closed by proxies
const heartbeatInterval = 30 * time.Second

// EventsStreamHandler streams events as Server-Sent Events
type EventsStreamHandler struct {
	eventBus  *events.Bus
	products  ProductLookup
	shutdown  <-chan struct{}
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new SSE events handler
func NewEventsStreamHandler(eventBus *events.Bus, products ProductLookup, shutdown <-chan struct{}, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		products:  products,
		shutdown:  shutdown,
		heartbeat: heartbeatInterval,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream?types=A,B
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	types := parseTypesParam(r.URL.Query().Get("types"))
	if len(types) == 0 {
		http.Error(w, "No known event types requested", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := subscribe(h.eventBus, types, h.log)
	defer sub.unsubscribe()

	visible := newVisibility(h.products, userID)
	ctx := r.Context()

	h.log.Info().Int64("user_id", userID).Int("types", len(types)).Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}, h.log))
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().
				Int64("user_id", userID).
				Int64("dropped", sub.dropped.Load()).
				Msg("Client disconnected from event stream")
			return

		case <-h.shutdown:
			return

		case event := <-sub.events:
			if !visible.allows(ctx, event) {
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, encodeEvent(event, h.log))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}
