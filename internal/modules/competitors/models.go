// Package competitors tracks competitors and their observed prices.
package competitors

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("competitor not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Competitor is a rival seller tracked by a user
type Competitor struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Website   string    `json:"website"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the payload for adding a competitor
type CreateRequest struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Notes   string `json:"notes"`
}

// Price is one observation of a competitor's price for a product.
// CompetitorName is filled in by the service for display.
type Price struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	CompetitorID   int64     `json:"competitor_id"`
	CompetitorName string    `json:"competitor_name,omitempty"`
	Price          float64   `json:"price"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// PriceRequest is the payload for recording a competitor price
type PriceRequest struct {
	ProductID int64   `json:"product_id"`
	Price     float64 `json:"price"`
}
