package products

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/rs/zerolog"
)

// Service implements product operations with ownership checks
type Service struct {
	repo         *Repository
	historyRepo  *history.Repository
	eventManager *events.Manager
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new product service
func NewService(
	repo *Repository,
	historyRepo *history.Repository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		historyRepo:  historyRepo,
		eventManager: eventManager,
		now:          time.Now,
		log:          log.With().Str("service", "products").Logger(),
	}
}

// Create validates and stores a product, then writes its initial price history row
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		UserID:       userID,
		Name:         req.Name,
		Category:     strings.TrimSpace(req.Category),
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		CostPrice:    req.CostPrice,
		CurrentPrice: req.CurrentPrice,
		MinimumPrice: req.MinimumPrice,
		MaximumPrice: req.MaximumPrice,
		StockLevel:   req.StockLevel,
		CreatedAt:    now.Truncate(time.Second),
		UpdatedAt:    now.Truncate(time.Second),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if _, err := s.historyRepo.Append(ctx, p.ID, p.CurrentPrice, now); err != nil {
		return nil, fmt.Errorf("failed to record initial price: %w", err)
	}

	s.eventManager.EmitTyped("products", &events.ProductCreatedData{
		ProductID:    p.ID,
		UserID:       userID,
		Name:         p.Name,
		CurrentPrice: p.CurrentPrice,
	})

	return p, nil
}

func validateCreate(req CreateRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validPrice(req.CurrentPrice) {
		return fmt.Errorf("%w: current price must be positive", ErrInvalidPrice)
	}
	if req.CostPrice < 0 || math.IsNaN(req.CostPrice) || math.IsInf(req.CostPrice, 0) {
		return fmt.Errorf("%w: cost price must not be negative", ErrInvalidPrice)
	}
	if req.StockLevel < 0 {
		return fmt.Errorf("%w: stock level must not be negative", ErrInvalidInput)
	}
	if req.MinimumPrice != nil {
		if !validPrice(*req.MinimumPrice) {
			return fmt.Errorf("%w: minimum price must be positive", ErrInvalidPrice)
		}
		if *req.MinimumPrice > req.CurrentPrice {
			return fmt.Errorf("%w: minimum price cannot be greater than current price", ErrInvalidPrice)
		}
	}
	if req.MaximumPrice != nil {
		if !validPrice(*req.MaximumPrice) {
			return fmt.Errorf("%w: maximum price must be positive", ErrInvalidPrice)
		}
		if *req.MaximumPrice < req.CurrentPrice {
			return fmt.Errorf("%w: maximum price cannot be less than current price", ErrInvalidPrice)
		}
	}
	return nil
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Get returns a product owned by userID; other users' products are reported as not found
func (s *Service) Get(ctx context.Context, userID, productID int64) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetAny returns a product regardless of owner (for background jobs)
func (s *Service) GetAny(ctx context.Context, productID int64) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns a user's products
func (s *Service) List(ctx context.Context, userID int64) ([]Product, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll returns every product (for background jobs)
func (s *Service) ListAll(ctx context.Context) ([]Product, error) {
	return s.repo.ListAll(ctx)
}

// UpdatePrice changes a product's price and appends a price history row
func (s *Service) UpdatePrice(ctx context.Context, userID, productID int64, update PriceUpdate) (*PriceChange, error) {
	if !validPrice(update.Price) {
		return nil, fmt.Errorf("%w: new price must be positive", ErrInvalidPrice)
	}

	p, err := s.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.UpdatePrice(ctx, p.ID, update.Price, now); err != nil {
		return nil, err
	}

	entry, err := s.historyRepo.Append(ctx, p.ID, update.Price, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record price change: %w", err)
	}

	change := &PriceChange{
		ProductID:        p.ID,
		OldPrice:         p.CurrentPrice,
		NewPrice:         update.Price,
		ChangedAt:        entry.ChangedAt,
		RecommendationID: update.RecommendationID,
	}

	s.log.Info().
		Int64("product_id", p.ID).
		Float64("old_price", change.OldPrice).
		Float64("new_price", change.NewPrice).
		Msg("Price updated")

	s.eventManager.EmitTyped("products", &events.PriceUpdatedData{
		ProductID:        p.ID,
		OldPrice:         change.OldPrice,
		NewPrice:         change.NewPrice,
		RecommendationID: update.RecommendationID,
	})

	return change, nil
}

// DecrementStock lowers a product's stock after a sale, floored at zero
func (s *Service) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	return s.repo.DecrementStock(ctx, productID, quantity, s.now().UTC())
}

// History returns an owned product's price history, oldest first
func (s *Service) History(ctx context.Context, userID, productID int64) ([]history.Entry, error) {
	if _, err := s.Get(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByProduct(ctx, productID)
}
