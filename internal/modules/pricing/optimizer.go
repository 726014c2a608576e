package pricing

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Optimizer generates price recommendations.
//
// It carries no per-call state and is safe for concurrent use.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a new price optimizer
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("service", "price_optimizer").Logger(),
	}
}

// OptimizePrice runs the full pipeline for one product:
// features -> rule adjustments -> bounds and rounding -> revenue estimate.
//
// The result depends only on the arguments; identical inputs and now give
// identical recommendations.
func (o *Optimizer) OptimizePrice(
	product Product,
	sales []Sale,
	competitors []CompetitorPrice,
	history []PriceChange,
	now time.Time,
) Recommendation {
	features := ExtractFeatures(product, sales, competitors, history, now)
	return o.Recommend(product, features, now)
}

// Recommend builds a recommendation from already extracted features.
func (o *Optimizer) Recommend(product Product, features Features, now time.Time) Recommendation {
	current := product.CurrentPrice

	adjusted, rationale, factors := Adjust(current, features, product)
	final, rationale, optimal := Finalize(adjusted, current, product, rationale)

	// A suppressed change keeps the current price untouched, so there is no
	// revenue delta to report either
	recommended := current
	var revenue float64
	if !optimal {
		recommended = roundCents(final)

		var sentence string
		revenue, sentence = EstimateRevenue(current, final, features)
		if sentence != "" {
			rationale = append(rationale, sentence)
		}
	}

	o.log.Debug().
		Int64("product_id", product.ID).
		Float64("current_price", current).
		Float64("adjusted_price", adjusted).
		Float64("recommended_price", final).
		Float64("elasticity", features.PriceElasticity).
		Float64("sales_velocity", features.SalesVelocity).
		Bool("optimal", optimal).
		Msg("Price recommendation computed")

	return Recommendation{
		ProductID:                product.ID,
		CurrentPrice:             current,
		RecommendedPrice:         recommended,
		PotentialRevenueIncrease: roundCents(revenue),
		Rationale:                strings.Join(rationale, ". "),
		Factors:                  factors,
		Status:                   StatusPending,
		CreatedAt:                now,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
