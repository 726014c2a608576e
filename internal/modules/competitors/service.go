package competitors

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/rs/zerolog"
)

// Service manages competitors and their price observations
type Service struct {
	repo           *Repository
	priceRepo      *PriceRepository
	productService *products.Service
	eventManager   *events.Manager
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates a new competitor service
func NewService(
	repo *Repository,
	priceRepo *PriceRepository,
	productService *products.Service,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:           repo,
		priceRepo:      priceRepo,
		productService: productService,
		eventManager:   eventManager,
		now:            time.Now,
		log:            log.With().Str("service", "competitors").Logger(),
	}
}

// Create adds a competitor for a user
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Competitor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	c := &Competitor{
		UserID:    userID,
		Name:      name,
		Website:   strings.TrimSpace(req.Website),
		Notes:     req.Notes,
		CreatedAt: time.Unix(s.now().Unix(), 0).UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a competitor owned by userID
func (s *Service) Get(ctx context.Context, userID, competitorID int64) (*Competitor, error) {
	c, err := s.repo.GetByID(ctx, competitorID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns a user's competitors
func (s *Service) List(ctx context.Context, userID int64) ([]Competitor, error) {
	return s.repo.ListByUser(ctx, userID)
}

// RecordPrice stores an observation; both competitor and product must belong to userID
func (s *Service) RecordPrice(ctx context.Context, userID, competitorID int64, req PriceRequest) (*Price, error) {
	if req.Price < 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return nil, fmt.Errorf("%w: price must not be negative", products.ErrInvalidPrice)
	}

	competitor, err := s.Get(ctx, userID, competitorID)
	if err != nil {
		return nil, err
	}
	product, err := s.productService.Get(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}

	p := &Price{
		ProductID:      product.ID,
		CompetitorID:   competitor.ID,
		CompetitorName: competitor.Name,
		Price:          req.Price,
		RecordedAt:     time.Unix(s.now().Unix(), 0).UTC(),
	}
	if err := s.priceRepo.Insert(ctx, p); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("product_id", product.ID).
		Int64("competitor_id", competitor.ID).
		Float64("price", p.Price).
		Msg("Competitor price recorded")

	s.eventManager.EmitTyped("competitors", &events.CompetitorPriceRecordedData{
		ProductID:    product.ID,
		CompetitorID: competitor.ID,
		Price:        p.Price,
	})

	return p, nil
}

// ProductPrices returns the observations for a product, oldest first, with competitor names.
// The caller is responsible for the product ownership check.
func (s *Service) ProductPrices(ctx context.Context, userID, productID int64) ([]Price, error) {
	prices, err := s.priceRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return prices, nil
	}

	competitors, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(competitors))
	for _, c := range competitors {
		names[c.ID] = c.Name
	}
	for i := range prices {
		prices[i].CompetitorName = names[prices[i].CompetitorID]
	}

	return prices, nil
}
