// Package recommendations generates, stores and resolves price recommendations.
package recommendations

import (
	"errors"
	"time"

	"github.com/aristath/pricepoint/internal/modules/pricing"
)

var (
	ErrNotFound                = errors.New("recommendation not found")
	ErrInvalidStatusTransition = errors.New("recommendation is not pending")
)

// Sources of a generated recommendation
const (
	SourceRequest   = "request"
	SourceScheduler = "scheduler"
)

// Recommendation is a persisted engine result
type Recommendation struct {
	UUID                     string          `json:"uuid"`
	ProductID                int64           `json:"product_id"`
	ProductName              string          `json:"product_name,omitempty"`
	CurrentPrice             float64         `json:"current_price"`
	RecommendedPrice         float64         `json:"recommended_price"`
	PotentialRevenueIncrease float64         `json:"potential_revenue_increase"`
	Rationale                string          `json:"rationale"`
	Factors                  pricing.Factors `json:"factors"`
	Status                   string          `json:"status"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// fromEngine copies an engine result into a storable recommendation
func fromEngine(id string, rec pricing.Recommendation) *Recommendation {
	createdAt := time.Unix(rec.CreatedAt.Unix(), 0).UTC()
	factors := rec.Factors
	if factors == nil {
		factors = pricing.Factors{}
	}
	return &Recommendation{
		UUID:                     id,
		ProductID:                rec.ProductID,
		CurrentPrice:             rec.CurrentPrice,
		RecommendedPrice:         rec.RecommendedPrice,
		PotentialRevenueIncrease: rec.PotentialRevenueIncrease,
		Rationale:                rec.Rationale,
		Factors:                  factors,
		Status:                   rec.Status,
		CreatedAt:                createdAt,
		UpdatedAt:                createdAt,
	}
}
