// Package pricing implements the price recommendation engine.
//
// The engine is a pure function of a product snapshot, its sales, competitor
// observations, price history and an explicit "now". It never performs I/O,
// holds no mutable state and never fails: insufficient or degenerate data is
// replaced by documented defaults.
package pricing

import (
	"encoding/json"
	"time"
)

// Recommendation statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Factor names recorded on every recommendation
const (
	FactorCompetitorPricing = "competitor_pricing"
	FactorInventoryLevel    = "inventory_level"
	FactorSalesPerformance  = "sales_performance"
	FactorPriceFreshness    = "price_freshness"
)

// Product is the pricing snapshot of a product consumed by the engine.
// MinimumPrice and MaximumPrice are nil when the bound is not configured.
type Product struct {
	ID           int64
	CurrentPrice float64
	MinimumPrice *float64
	MaximumPrice *float64
	StockLevel   int
}

// Sale is a single recorded sale.
type Sale struct {
	Price    float64
	Quantity int
	SoldAt   time.Time
}

// CompetitorPrice is a single competitor price observation.
type CompetitorPrice struct {
	CompetitorID int64
	Price        float64
	RecordedAt   time.Time
}

// PriceChange is one entry of a product's price history.
type PriceChange struct {
	Price     float64
	ChangedAt time.Time
}

// Features is the fixed feature vector extracted for one product.
type Features struct {
	PriceHistoryAvg     float64 `json:"price_history_avg" msgpack:"price_history_avg"`
	PriceHistoryTrend   float64 `json:"price_history_trend" msgpack:"price_history_trend"`
	DaysSinceLastChange int     `json:"days_since_last_change" msgpack:"days_since_last_change"`
	CompetitorPriceAvg  float64 `json:"competitor_price_avg" msgpack:"competitor_price_avg"`
	CompetitorPriceDiff float64 `json:"competitor_price_diff" msgpack:"competitor_price_diff"`
	SalesVelocity       float64 `json:"sales_velocity" msgpack:"sales_velocity"`
	PriceElasticity     float64 `json:"price_elasticity" msgpack:"price_elasticity"`
	StockRatio          float64 `json:"stock_ratio" msgpack:"stock_ratio"`
}

// Factors maps a rule name to its signed influence on the recommendation.
type Factors map[string]int

// Recommendation is the engine output, persisted verbatim by the caller.
type Recommendation struct {
	ProductID                int64     `json:"product_id"`
	CurrentPrice             float64   `json:"current_price"`
	RecommendedPrice         float64   `json:"recommended_price"`
	PotentialRevenueIncrease float64   `json:"potential_revenue_increase"`
	Rationale                string    `json:"rationale"`
	Factors                  Factors   `json:"factors"`
	Status                   string    `json:"status"`
	CreatedAt                time.Time `json:"created_at"`
}

// FactorsJSON returns the factor mapping serialized as JSON text for storage.
func (r Recommendation) FactorsJSON() string {
	if r.Factors == nil {
		return "{}"
	}
	data, err := json.Marshal(r.Factors)
	if err != nil {
		// map[string]int always marshals
		return "{}"
	}
	return string(data)
}

// ParseFactors decodes factors stored as JSON text.
func ParseFactors(raw string) (Factors, error) {
	factors := Factors{}
	if raw == "" {
		return factors, nil
	}
	if err := json.Unmarshal([]byte(raw), &factors); err != nil {
		return nil, err
	}
	return factors, nil
}
