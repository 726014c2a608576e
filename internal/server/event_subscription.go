package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/utils"
)

// streamBuffer is the per-client event backlog before events are dropped
const streamBuffer = 100

// ProductLookup resolves a product for its owner
type ProductLookup interface {
	Get(ctx context.Context, userID, productID int64) (*products.Product, error)
}

// subscription forwards bus events into a buffered channel.
// Bus handlers run on the emitter's goroutine, so a full buffer drops the event.
type subscription struct {
	events      chan *events.Event
	unsubscribe func()
	dropped     atomic.Int64
}

func subscribe(bus *events.Bus, types []events.EventType, log zerolog.Logger) *subscription {
	sub := &subscription{events: make(chan *events.Event, streamBuffer)}
	sub.unsubscribe = bus.SubscribeAll(types, func(event *events.Event) {
		select {
		case sub.events <- event:
		default:
			sub.dropped.Add(1)
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	return sub
}

// parseTypesParam reads a comma-separated types filter; empty means every type
func parseTypesParam(raw string) []events.EventType {
	if strings.TrimSpace(raw) == "" {
		return events.AllTypes
	}

	return events.ParseTypes(utils.ParseCSV(raw))
}

// visibility decides which events a user may see.
// Product events are only visible to the product's owner; events without a
// product (backups, errors) are visible to every signed-in user.
type visibility struct {
	lookup ProductLookup
	userID int64
	owned  map[int64]bool
}

func newVisibility(lookup ProductLookup, userID int64) *visibility {
	return &visibility{lookup: lookup, userID: userID, owned: make(map[int64]bool)}
}

func (v *visibility) allows(ctx context.Context, event *events.Event) bool {
	productID, ok := productIDOf(event.Data)
	if !ok {
		return true
	}

	if owned, seen := v.owned[productID]; seen {
		return owned
	}

	_, err := v.lookup.Get(ctx, v.userID, productID)
	owned := err == nil
	// Only cache definite answers; a cancelled lookup is retried
	if err == nil || ctx.Err() == nil {
		v.owned[productID] = owned
	}
	return owned
}

func productIDOf(data map[string]interface{}) (int64, bool) {
	switch v := data["product_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// encodeEvent encodes an event for stream clients
func encodeEvent(event interface{}, log zerolog.Logger) []byte {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return []byte(`{"error":"failed to encode event"}`)
	}
	return data
}
