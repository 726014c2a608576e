package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/users"
)

// wsWriteTimeout bounds a single frame write to a slow client
const wsWriteTimeout = 5 * time.Second

// EventsWebSocketHandler streams events over a WebSocket.
// Messages are JSON-encoded events; client messages are ignored.
type EventsWebSocketHandler struct {
	eventBus  *events.Bus
	products  ProductLookup
	shutdown  <-chan struct{}
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsWebSocketHandler creates a new WebSocket events handler
func NewEventsWebSocketHandler(eventBus *events.Bus, products ProductLookup, shutdown <-chan struct{}, log zerolog.Logger) *EventsWebSocketHandler {
	return &EventsWebSocketHandler{
		eventBus:  eventBus,
		products:  products,
		shutdown:  shutdown,
		heartbeat: heartbeatInterval,
		log:       log.With().Str("component", "events_websocket").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws?types=A,B
func (h *EventsWebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	types := parseTypesParam(r.URL.Query().Get("types"))
	if len(types) == 0 {
		http.Error(w, "No known event types requested", http.StatusBadRequest)
		return
	}

	// Tokens travel in the URL, not in cookies, so any origin may connect
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	sub := subscribe(h.eventBus, types, h.log)
	defer sub.unsubscribe()

	// CloseRead answers control frames and cancels ctx when the client goes away
	ctx := conn.CloseRead(r.Context())
	visible := newVisibility(h.products, userID)

	h.log.Info().Int64("user_id", userID).Int("types", len(types)).Msg("Client connected to event websocket")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().
				Int64("user_id", userID).
				Int64("dropped", sub.dropped.Load()).
				Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-h.shutdown:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return

		case event := <-sub.events:
			if !visible.allows(ctx, event) {
				continue
			}
			if err := h.write(ctx, conn, encodeEvent(event, h.log)); err != nil {
				h.logWriteError(err, userID)
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logWriteError(err, userID)
				return
			}
		}
	}
}

func (h *EventsWebSocketHandler) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func (h *EventsWebSocketHandler) logWriteError(err error, userID int64) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		h.log.Debug().Err(err).Int64("user_id", userID).Msg("Event websocket closed")
		return
	}
	h.log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to write to event websocket")
}
