package cache

import (
	"context"
	"time"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/rs/zerolog"
)

// invalidatingEvents change the inputs of a product's feature vector
var invalidatingEvents = []events.EventType{
	events.PriceUpdated,
	events.SaleRecorded,
	events.CompetitorPriceRecorded,
}

// RegisterInvalidationListeners drops a product's cached features whenever its
// price, sales or competitor prices change. Returns the unsubscribe func.
func RegisterInvalidationListeners(bus *events.Bus, repo *FeatureRepository, log zerolog.Logger) func() {
	log = log.With().Str("component", "feature_cache").Logger()

	return bus.SubscribeAll(invalidatingEvents, func(event *events.Event) {
		productID, ok := productIDFrom(event.Data)
		if !ok {
			log.Warn().Str("event_type", string(event.Type)).Msg("Event without product_id")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := repo.Invalidate(ctx, productID); err != nil {
			log.Error().Err(err).Int64("product_id", productID).Msg("Failed to invalidate features")
			return
		}

		log.Debug().
			Int64("product_id", productID).
			Str("event_type", string(event.Type)).
			Msg("Feature snapshot invalidated")
	})
}

// productIDFrom reads product_id from event data; typed events arrive as float64
func productIDFrom(data map[string]interface{}) (int64, bool) {
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
