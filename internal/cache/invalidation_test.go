package cache

import (
	"context"
	"testing"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidationListeners(t *testing.T) {
	now := baseTime
	repo := newFeatureRepo(t, &now)
	ctx := context.Background()

	bus := events.NewBus()
	manager := events.NewManager(bus, zerolog.Nop())
	unsubscribe := RegisterInvalidationListeners(bus, repo, zerolog.Nop())

	tests := []struct {
		name string
		emit func(productID int64)
	}{
		{"price updated", func(id int64) {
			manager.EmitTyped("products", &events.PriceUpdatedData{ProductID: id, OldPrice: 10, NewPrice: 12})
		}},
		{"sale recorded", func(id int64) {
			manager.EmitTyped("sales", &events.SaleRecordedData{ProductID: id, Quantity: 1, Price: 10})
		}},
		{"competitor price recorded", func(id int64) {
			bus.Emit(events.CompetitorPriceRecorded, "competitors", map[string]interface{}{"product_id": id})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.Store(ctx, sampleSnapshot(1), TTLFeatures))
			require.NoError(t, repo.Store(ctx, sampleSnapshot(2), TTLFeatures))

			tt.emit(1)

			gone, err := repo.GetIfFresh(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, gone)

			kept, err := repo.GetIfFresh(ctx, 2)
			require.NoError(t, err)
			assert.NotNil(t, kept)
		})
	}

	unsubscribe()
	require.NoError(t, repo.Store(ctx, sampleSnapshot(1), TTLFeatures))
	manager.EmitTyped("sales", &events.SaleRecordedData{ProductID: 1, Quantity: 1})

	kept, err := repo.GetIfFresh(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestInvalidationListeners_IgnoresOtherEvents(t *testing.T) {
	now := baseTime
	repo := newFeatureRepo(t, &now)
	ctx := context.Background()

	bus := events.NewBus()
	RegisterInvalidationListeners(bus, repo, zerolog.Nop())

	require.NoError(t, repo.Store(ctx, sampleSnapshot(1), TTLFeatures))
	bus.Emit(events.ProductCreated, "products", map[string]interface{}{"product_id": 1})
	bus.Emit(events.SaleRecorded, "sales", map[string]interface{}{})

	kept, err := repo.GetIfFresh(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
