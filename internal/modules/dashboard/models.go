// Package dashboard aggregates sales, prices and recommendations for display.
package dashboard

import (
	"errors"
	"time"

	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
)

// ErrInvalidRange is returned for day ranges outside 1..MaxDays
var ErrInvalidRange = errors.New("invalid day range")

const (
	// DefaultDays is the window of the dashboard summary
	DefaultDays = 30
	// MaxDays bounds the daily data range
	MaxDays = 365
	// RecentRecommendations is how many recommendations the summary shows
	RecentRecommendations = 5
	// DefaultSMAPeriod is the moving average window over price history entries
	DefaultSMAPeriod = 3
)

// DailyPoint is one day of sales; days without sales are zero-filled
type DailyPoint struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// PriceChangePoint counts price changes on one day
type PriceChangePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary for a user
type Stats struct {
	ProductCount          int                              `json:"product_count"`
	TotalRevenue          float64                          `json:"total_revenue"`
	AveragePrice          float64                          `json:"average_price"`
	RecommendationCount   int                              `json:"recommendation_count"`
	RecentRecommendations []recommendations.Recommendation `json:"recent_recommendations"`
	DailySales            []DailyPoint                     `json:"daily_sales"`
}

// DailyData is the daily sales and price change series over a range of days
type DailyData struct {
	Days         int                `json:"days"`
	DailySales   []DailyPoint       `json:"daily_sales"`
	PriceChanges []PriceChangePoint `json:"price_changes"`
}

// PricePoint is a price history entry with its moving average.
// SMA is nil until enough entries exist.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
	SMA   *float64  `json:"sma"`
}

// SalePoint is a sale with its revenue
type SalePoint struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Revenue  float64   `json:"revenue"`
}

// ProductChart is the chart data of one product
type ProductChart struct {
	ProductID        int64               `json:"product_id"`
	SMAPeriod        int                 `json:"sma_period"`
	PriceHistory     []PricePoint        `json:"price_history"`
	Sales            []SalePoint         `json:"sales"`
	CompetitorPrices []competitors.Price `json:"competitor_prices"`
}
