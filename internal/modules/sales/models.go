// Package sales provides the append-only sales ledger.
package sales

import (
	"errors"
	"time"
)

// ErrInvalidSale is returned for sales with a non-positive quantity or price
var ErrInvalidSale = errors.New("invalid sale")

// DateLayout is the accepted format for sale dates
const DateLayout = "2006-01-02"

// Sale is one recorded sale of a product
type Sale struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	SoldAt    time.Time `json:"sold_at"`
}

// Revenue is quantity times unit price
func (s Sale) Revenue() float64 {
	return float64(s.Quantity) * s.Price
}

// RecordRequest is the payload for recording a sale.
// Price defaults to the product's current price; SaleDate (YYYY-MM-DD) defaults to now.
type RecordRequest struct {
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price"`
	SaleDate string   `json:"sale_date"`
}

// RecordResult is the outcome of recording a sale
type RecordResult struct {
	Sale       Sale    `json:"sale"`
	Revenue    float64 `json:"revenue"`
	StockLevel int     `json:"stock_level"`
}
