// Package products provides the product catalog: CRUD, price changes and stock levels.
package products

import (
	"errors"
	"time"

	"github.com/aristath/pricepoint/internal/modules/pricing"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidInput = errors.New("invalid input")
)

// Product is a catalog entry owned by a user
type Product struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	CostPrice    float64   `json:"cost_price"`
	CurrentPrice float64   `json:"current_price"`
	MinimumPrice *float64  `json:"minimum_price"`
	MaximumPrice *float64  `json:"maximum_price"`
	StockLevel   int       `json:"stock_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns the view of the product the pricing engine consumes
func (p *Product) Snapshot() pricing.Product {
	return pricing.Product{
		ID:           p.ID,
		CurrentPrice: p.CurrentPrice,
		MinimumPrice: p.MinimumPrice,
		MaximumPrice: p.MaximumPrice,
		StockLevel:   p.StockLevel,
	}
}

// CreateRequest is the payload for adding a product
type CreateRequest struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"image_url"`
	CostPrice    float64  `json:"cost_price"`
	CurrentPrice float64  `json:"current_price"`
	MinimumPrice *float64 `json:"minimum_price"`
	MaximumPrice *float64 `json:"maximum_price"`
	StockLevel   int      `json:"stock_level"`
}

// PriceUpdate is a request to change a product's price
type PriceUpdate struct {
	Price float64 `json:"new_price"`
	// RecommendationID marks the update as accepting a recommendation
	RecommendationID string `json:"recommendation_id,omitempty"`
}

// PriceChange describes an applied price update
type PriceChange struct {
	ProductID        int64     `json:"product_id"`
	OldPrice         float64   `json:"old_price"`
	NewPrice         float64   `json:"new_price"`
	ChangedAt        time.Time `json:"changed_at"`
	RecommendationID string    `json:"recommendation_id,omitempty"`
}
