package pricing

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// SalesWindow is the trailing window used for velocity and elasticity
	SalesWindow = 30 * 24 * time.Hour

	// DefaultElasticity is used whenever elasticity cannot be estimated
	DefaultElasticity = -1.0

	// DefaultDaysSinceLastChange is used when a product has no price history
	DefaultDaysSinceLastChange = 30

	// MinElasticitySamples is the number of in-window sales required for a fit
	MinElasticitySamples = 5

	salesWindowDays    = 30.0
	velocityStabilizer = 0.1
)

// ExtractFeatures builds the feature vector for one product.
//
// History must be supplied in ascending time order; the trend compares the
// first and last entries as given.
func ExtractFeatures(
	product Product,
	sales []Sale,
	competitors []CompetitorPrice,
	history []PriceChange,
	now time.Time,
) Features {
	var f Features

	f.PriceHistoryAvg, f.PriceHistoryTrend, f.DaysSinceLastChange = historyFeatures(product, history, now)
	f.CompetitorPriceAvg, f.CompetitorPriceDiff = competitorFeatures(product, competitors)

	recent := recentSales(sales, now)
	f.SalesVelocity = float64(len(recent)) / salesWindowDays
	f.PriceElasticity = estimateElasticity(recent)

	if product.StockLevel > 0 {
		f.StockRatio = float64(product.StockLevel) / (f.SalesVelocity + velocityStabilizer)
	}

	return f
}

func historyFeatures(product Product, history []PriceChange, now time.Time) (avg, trend float64, days int) {
	if len(history) == 0 {
		return product.CurrentPrice, 0, DefaultDaysSinceLastChange
	}

	var sum float64
	last := history[0].ChangedAt
	for _, h := range history {
		sum += h.Price
		if h.ChangedAt.After(last) {
			last = h.ChangedAt
		}
	}
	avg = sum / float64(len(history))

	if len(history) > 1 {
		first := history[0].Price
		if first != 0 {
			trend = (history[len(history)-1].Price - first) / first
		}
	}

	days = int(math.Floor(now.Sub(last).Hours() / 24))
	return avg, trend, days
}

func competitorFeatures(product Product, competitors []CompetitorPrice) (avg, diff float64) {
	if len(competitors) == 0 {
		return product.CurrentPrice, 0
	}

	var sum float64
	for _, c := range competitors {
		sum += c.Price
	}
	avg = sum / float64(len(competitors))
	return avg, product.CurrentPrice - avg
}

// recentSales returns sales strictly inside the trailing window ending at now.
func recentSales(sales []Sale, now time.Time) []Sale {
	cutoff := now.Add(-SalesWindow)
	recent := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if s.SoldAt.After(cutoff) {
			recent = append(recent, s)
		}
	}
	return recent
}

// estimateElasticity fits ln(quantity) = a + b*ln(price) and returns b.
// Any input the fit cannot handle yields DefaultElasticity.
func estimateElasticity(sales []Sale) float64 {
	if len(sales) < MinElasticitySamples {
		return DefaultElasticity
	}

	logPrices := make([]float64, len(sales))
	logQuantities := make([]float64, len(sales))
	distinct := make(map[float64]struct{}, len(sales))

	for i, s := range sales {
		if s.Price <= 0 || s.Quantity <= 0 {
			return DefaultElasticity
		}
		logPrices[i] = math.Log(s.Price)
		logQuantities[i] = math.Log(float64(s.Quantity))
		distinct[logPrices[i]] = struct{}{}
	}

	// A vertical line has no slope
	if len(distinct) < 2 {
		return DefaultElasticity
	}

	_, slope := stat.LinearRegression(logPrices, logQuantities, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return DefaultElasticity
	}
	return slope
}
