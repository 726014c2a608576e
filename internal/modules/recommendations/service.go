package recommendations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service runs the pricing engine against stored data and manages recommendation status
type Service struct {
	repo            *Repository
	productService  *products.Service
	salesRepo       *sales.Repository
	competitorPrice *competitors.PriceRepository
	historyRepo     *history.Repository
	featureRepo     *cache.FeatureRepository
	optimizer       *pricing.Optimizer
	eventManager    *events.Manager
	locks           *productLocks
	now             func() time.Time
	log             zerolog.Logger
}

// NewService creates a new recommendation service
func NewService(
	repo *Repository,
	productService *products.Service,
	salesRepo *sales.Repository,
	competitorPrice *competitors.PriceRepository,
	historyRepo *history.Repository,
	featureRepo *cache.FeatureRepository,
	optimizer *pricing.Optimizer,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:            repo,
		productService:  productService,
		salesRepo:       salesRepo,
		competitorPrice: competitorPrice,
		historyRepo:     historyRepo,
		featureRepo:     featureRepo,
		optimizer:       optimizer,
		eventManager:    eventManager,
		locks:           newProductLocks(),
		now:             time.Now,
		log:             log.With().Str("service", "recommendations").Logger(),
	}
}

// Generate runs the engine for one of the user's products and stores the result
func (s *Service) Generate(ctx context.Context, userID, productID int64) (*Recommendation, error) {
	product, err := s.productService.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, product.ID, SourceRequest)
}

// GenerateForProduct runs the engine for any product (scheduled refresh)
func (s *Service) GenerateForProduct(ctx context.Context, productID int64) (*Recommendation, error) {
	return s.generate(ctx, productID, SourceScheduler)
}

func (s *Service) generate(ctx context.Context, productID int64, source string) (*Recommendation, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	// Re-read under the lock so the snapshot reflects any price change that just finished
	product, err := s.productService.GetAny(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Always extracted from the records: a cached snapshot may predate the product read above
	snapshot, err := s.extract(ctx, product)
	if err != nil {
		return nil, err
	}

	result := s.optimizer.Recommend(product.Snapshot(), snapshot.Features, s.now().UTC())
	rec := fromEngine(uuid.New().String(), result)
	rec.ProductName = product.Name

	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("uuid", rec.UUID).
		Int64("product_id", rec.ProductID).
		Float64("current_price", rec.CurrentPrice).
		Float64("recommended_price", rec.RecommendedPrice).
		Str("source", source).
		Msg("Recommendation generated")

	s.eventManager.EmitTyped("recommendations", &events.RecommendationCreatedData{
		UUID:             rec.UUID,
		ProductID:        rec.ProductID,
		CurrentPrice:     rec.CurrentPrice,
		RecommendedPrice: rec.RecommendedPrice,
		Source:           source,
	})

	return rec, nil
}

// Features returns the feature vector of one of the user's products, cache first.
// A freshly extracted snapshot is cached only if no invalidation arrived while the
// product and its records were being read.
func (s *Service) Features(ctx context.Context, userID, productID int64) (*cache.FeatureSnapshot, error) {
	version := s.featureRepo.Version(productID)

	product, err := s.productService.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	cached, err := s.featureRepo.GetIfFresh(ctx, product.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("product_id", product.ID).Msg("Feature cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	snapshot, err := s.extract(ctx, product)
	if err != nil {
		return nil, err
	}

	stored, err := s.featureRepo.StoreIfCurrent(ctx, *snapshot, cache.TTLFeatures, version)
	if err != nil {
		s.log.Warn().Err(err).Int64("product_id", product.ID).Msg("Feature cache write failed")
	} else if !stored {
		s.log.Debug().Int64("product_id", product.ID).Msg("Feature snapshot invalidated during extraction, not cached")
	}

	return snapshot, nil
}

// extract computes the feature vector from the stored records
func (s *Service) extract(ctx context.Context, product *products.Product) (*cache.FeatureSnapshot, error) {
	salesRows, err := s.salesRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	priceRows, err := s.competitorPrice.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	historyRows, err := s.historyRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return &cache.FeatureSnapshot{
		ProductID:   product.ID,
		Features:    pricing.ExtractFeatures(product.Snapshot(), toSales(salesRows), toCompetitorPrices(priceRows), toPriceChanges(historyRows), now),
		ExtractedAt: now,
	}, nil
}

// ApplyPrice changes a product's price. When update names a recommendation, it must be
// a pending recommendation of that product and is marked accepted once the price is applied.
func (s *Service) ApplyPrice(ctx context.Context, userID, productID int64, update products.PriceUpdate) (*products.PriceChange, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	if update.RecommendationID == "" {
		return s.productService.UpdatePrice(ctx, userID, productID, update)
	}

	if _, err := s.productService.Get(ctx, userID, productID); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByUUID(ctx, update.RecommendationID)
	if err != nil {
		return nil, err
	}
	if rec.ProductID != productID {
		return nil, ErrNotFound
	}
	if rec.Status != pricing.StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	change, err := s.productService.UpdatePrice(ctx, userID, productID, update)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, rec, pricing.StatusAccepted); err != nil {
		return nil, err
	}

	return change, nil
}

// Reject marks a pending recommendation of one of the user's products as rejected
func (s *Service) Reject(ctx context.Context, userID int64, id string) (*Recommendation, error) {
	rec, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.productService.Get(ctx, userID, rec.ProductID); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlock := s.locks.Lock(rec.ProductID)
	defer unlock()

	if err := s.transition(ctx, rec, pricing.StatusRejected); err != nil {
		return nil, err
	}
	return rec, nil
}

// transition moves rec out of pending and updates it in place
func (s *Service) transition(ctx context.Context, rec *Recommendation, to string) error {
	if rec.Status != pricing.StatusPending {
		return ErrInvalidStatusTransition
	}

	now := time.Unix(s.now().Unix(), 0).UTC()
	if err := s.repo.UpdateStatus(ctx, rec.UUID, pricing.StatusPending, to, now); err != nil {
		return err
	}

	from := rec.Status
	rec.Status = to
	rec.UpdatedAt = now

	s.log.Info().
		Str("uuid", rec.UUID).
		Int64("product_id", rec.ProductID).
		Str("status", to).
		Msg("Recommendation status changed")

	s.eventManager.EmitTyped("recommendations", &events.RecommendationStatusChangedData{
		UUID:      rec.UUID,
		ProductID: rec.ProductID,
		From:      from,
		To:        to,
	})

	return nil
}

// ListRecent returns up to limit of the user's recommendations, newest first
func (s *Service) ListRecent(ctx context.Context, userID int64, limit int) ([]Recommendation, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// ListForProduct returns up to limit of a product's recommendations, newest first.
// The caller is responsible for the product ownership check.
func (s *Service) ListForProduct(ctx context.Context, productID int64, limit int) ([]Recommendation, error) {
	return s.repo.ListByProduct(ctx, productID, limit)
}

// Count returns the number of recommendations for the user's products
func (s *Service) Count(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountByUser(ctx, userID)
}

// RefreshAll generates one recommendation per product.
// A failing product does not stop the others; failures are joined into the returned error.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	defer utils.OperationTimer("refresh_recommendations", 5*time.Minute, s.log)()

	all, err := s.productService.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	generated := 0
	for _, p := range all {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.GenerateForProduct(ctx, p.ID); err != nil {
			s.log.Error().Err(err).Int64("product_id", p.ID).Msg("Failed to refresh recommendation")
			errs = append(errs, fmt.Errorf("product %d: %w", p.ID, err))
			continue
		}
		generated++
	}

	s.log.Info().
		Int("products", len(all)).
		Int("generated", generated).
		Int("failed", len(errs)).
		Msg("Recommendations refreshed")

	return generated, errors.Join(errs...)
}

func toSales(rows []sales.Sale) []pricing.Sale {
	out := make([]pricing.Sale, len(rows))
	for i, r := range rows {
		out[i] = pricing.Sale{Price: r.Price, Quantity: r.Quantity, SoldAt: r.SoldAt}
	}
	return out
}

func toCompetitorPrices(rows []competitors.Price) []pricing.CompetitorPrice {
	out := make([]pricing.CompetitorPrice, len(rows))
	for i, r := range rows {
		out[i] = pricing.CompetitorPrice{CompetitorID: r.CompetitorID, Price: r.Price, RecordedAt: r.RecordedAt}
	}
	return out
}

func toPriceChanges(rows []history.Entry) []pricing.PriceChange {
	out := make([]pricing.PriceChange, len(rows))
	for i, r := range rows {
		out[i] = pricing.PriceChange{Price: r.Price, ChangedAt: r.ChangedAt}
	}
	return out
}
