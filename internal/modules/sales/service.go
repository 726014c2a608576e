package sales

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/rs/zerolog"
)

// Service records sales against owned products
type Service struct {
	repo           *Repository
	productService *products.Service
	eventManager   *events.Manager
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates a new sales service
func NewService(
	repo *Repository,
	productService *products.Service,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:           repo,
		productService: productService,
		eventManager:   eventManager,
		now:            time.Now,
		log:            log.With().Str("service", "sales").Logger(),
	}
}

// Record appends a sale and decrements the product's stock, floored at zero
func (s *Service) Record(ctx context.Context, userID, productID int64, req RecordRequest) (*RecordResult, error) {
	product, err := s.productService.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	sale := Sale{
		ProductID: product.ID,
		Quantity:  req.Quantity,
		Price:     product.CurrentPrice,
		SoldAt:    s.now().UTC(),
	}
	if req.Price != nil {
		sale.Price = *req.Price
	}
	if req.SaleDate != "" {
		soldAt, err := time.Parse(DateLayout, req.SaleDate)
		if err != nil {
			return nil, fmt.Errorf("%w: sale date must be YYYY-MM-DD", ErrInvalidSale)
		}
		sale.SoldAt = soldAt
	}

	if sale.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidSale)
	}
	if sale.Price <= 0 || math.IsNaN(sale.Price) || math.IsInf(sale.Price, 0) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidSale)
	}

	if err := s.repo.Insert(ctx, &sale); err != nil {
		return nil, err
	}
	sale.SoldAt = time.Unix(sale.SoldAt.Unix(), 0).UTC()

	stock, err := s.productService.DecrementStock(ctx, product.ID, sale.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	s.log.Info().
		Int64("product_id", product.ID).
		Int("quantity", sale.Quantity).
		Float64("price", sale.Price).
		Int("stock_level", stock).
		Msg("Sale recorded")

	s.eventManager.EmitTyped("sales", &events.SaleRecordedData{
		ProductID:  product.ID,
		Quantity:   sale.Quantity,
		Price:      sale.Price,
		StockLevel: stock,
	})

	return &RecordResult{Sale: sale, Revenue: sale.Revenue(), StockLevel: stock}, nil
}

// ListRecent returns up to limit of an owned product's latest sales
func (s *Service) ListRecent(ctx context.Context, userID, productID int64, limit int) ([]Sale, error) {
	if _, err := s.productService.Get(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.ListRecent(ctx, productID, limit)
}
