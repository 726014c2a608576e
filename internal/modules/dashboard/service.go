package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Service builds dashboard summaries and chart data
type Service struct {
	productService        *products.Service
	salesRepo             *sales.Repository
	historyRepo           *history.Repository
	competitorService     *competitors.Service
	recommendationService *recommendations.Service
	now                   func() time.Time
	log                   zerolog.Logger
}

// NewService creates a new dashboard service
func NewService(
	productService *products.Service,
	salesRepo *sales.Repository,
	historyRepo *history.Repository,
	competitorService *competitors.Service,
	recommendationService *recommendations.Service,
	log zerolog.Logger,
) *Service {
	return &Service{
		productService:        productService,
		salesRepo:             salesRepo,
		historyRepo:           historyRepo,
		competitorService:     competitorService,
		recommendationService: recommendationService,
		now:                   time.Now,
		log:                   log.With().Str("service", "dashboard").Logger(),
	}
}

// Stats returns the user's dashboard summary over the last DefaultDays days
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	owned, err := s.productService.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recent, err := s.salesRepo.ListSince(ctx, productIDs(owned), now.AddDate(0, 0, -DefaultDays))
	if err != nil {
		return nil, err
	}

	count, err := s.recommendationService.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.recommendationService.ListRecent(ctx, userID, RecentRecommendations)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ProductCount:          len(owned),
		RecommendationCount:   count,
		RecentRecommendations: latest,
		DailySales:            dailySales(recent, DefaultDays, now),
	}

	for _, sale := range recent {
		stats.TotalRevenue += sale.Revenue()
	}

	var priceSum float64
	for _, p := range owned {
		priceSum += p.CurrentPrice
	}
	stats.AveragePrice = priceSum / float64(max(len(owned), 1))

	return stats, nil
}

// DailyData returns daily sales and price change counts over the last days days
func (s *Service) DailyData(ctx context.Context, userID int64, days int) (*DailyData, error) {
	if days < 1 || days > MaxDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidRange, MaxDays)
	}

	owned, err := s.productService.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := productIDs(owned)

	now := s.now().UTC()
	since := now.AddDate(0, 0, -days)

	recent, err := s.salesRepo.ListSince(ctx, ids, since)
	if err != nil {
		return nil, err
	}
	changes, err := s.historyRepo.ListSince(ctx, ids, since)
	if err != nil {
		return nil, err
	}

	return &DailyData{
		Days:         days,
		DailySales:   dailySales(recent, days, now),
		PriceChanges: priceChangeCounts(changes),
	}, nil
}

// Chart returns price history with a simple moving average, sales and competitor prices
// for one of the user's products
func (s *Service) Chart(ctx context.Context, userID, productID int64, smaPeriod int) (*ProductChart, error) {
	if smaPeriod < 2 {
		smaPeriod = DefaultSMAPeriod
	}

	product, err := s.productService.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	saleRows, err := s.salesRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	prices, err := s.competitorService.ProductPrices(ctx, userID, product.ID)
	if err != nil {
		return nil, err
	}

	chart := &ProductChart{
		ProductID:        product.ID,
		SMAPeriod:        smaPeriod,
		PriceHistory:     pricePoints(entries, smaPeriod),
		Sales:            make([]SalePoint, len(saleRows)),
		CompetitorPrices: prices,
	}
	for i, sale := range saleRows {
		chart.Sales[i] = SalePoint{
			Date:     sale.SoldAt,
			Quantity: sale.Quantity,
			Price:    sale.Price,
			Revenue:  sale.Revenue(),
		}
	}

	return chart, nil
}

// dailySales buckets sales by UTC day over the days ending today, oldest first.
// Count is the number of sales, not units.
func dailySales(rows []sales.Sale, days int, now time.Time) []DailyPoint {
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	points := make([]DailyPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		points[i].Date = date
		index[date] = i
	}

	for _, sale := range rows {
		i, ok := index[sale.SoldAt.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		points[i].Count++
		points[i].Revenue += sale.Revenue()
	}

	return points
}

// priceChangeCounts counts price history entries per UTC day, oldest first.
// Days without changes are omitted.
func priceChangeCounts(entries []history.Entry) []PriceChangePoint {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.ChangedAt.UTC().Format(dateLayout)]++
	}

	points := make([]PriceChangePoint, 0, len(counts))
	for date, count := range counts {
		points = append(points, PriceChangePoint{Date: date, Count: count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return points
}

// pricePoints pairs each history entry with the SMA of the period entries ending at it
func pricePoints(entries []history.Entry, period int) []PricePoint {
	points := make([]PricePoint, len(entries))
	closes := make([]float64, len(entries))
	for i, e := range entries {
		points[i] = PricePoint{Date: e.ChangedAt, Price: e.Price}
		closes[i] = e.Price
	}

	if len(closes) < period {
		return points
	}

	sma := talib.Sma(closes, period)
	for i := period - 1; i < len(sma) && i < len(points); i++ {
		v := sma[i]
		points[i].SMA = &v
	}

	return points
}

func productIDs(list []products.Product) []int64 {
	ids := make([]int64, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}
