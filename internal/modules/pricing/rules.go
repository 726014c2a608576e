package pricing

import (
	"fmt"
	"math"
)

// rule inspects the features and returns the price delta, the factor value
// and a sentence explaining the delta. An empty sentence means the rule did
// not fire.
type rule struct {
	name  string
	apply func(current float64, f Features) (delta float64, factor int, sentence string)
}

// rules are evaluated in this order; the order only affects rationale order
var rules = []rule{
	{name: FactorCompetitorPricing, apply: competitorRule},
	{name: FactorInventoryLevel, apply: inventoryRule},
	{name: FactorSalesPerformance, apply: salesPerformanceRule},
	{name: FactorPriceFreshness, apply: freshnessRule},
}

// Adjust applies the adjustment rules to the current price.
// Every rule records a factor, including rules that did not fire (factor 0).
func Adjust(current float64, f Features, product Product) (float64, []string, Factors) {
	price := current
	rationale := make([]string, 0, len(rules))
	factors := make(Factors, len(rules))

	for _, r := range rules {
		delta, factor, sentence := r.apply(current, f)
		price += delta
		factors[r.name] = factor
		if sentence != "" {
			rationale = append(rationale, sentence)
		}
	}

	return price, rationale, factors
}

func competitorRule(current float64, f Features) (float64, int, string) {
	diff := f.CompetitorPriceDiff
	switch {
	case diff > 0:
		return -math.Min(diff*0.15, current*0.05), -2,
			fmt.Sprintf("Your price is higher than competitors by $%.2f", diff)
	case diff < -5:
		return math.Min(-diff*0.10, current*0.03), 2,
			fmt.Sprintf("Your price is significantly lower than competitors by $%.2f", -diff)
	}
	return 0, 0, ""
}

func inventoryRule(current float64, f Features) (float64, int, string) {
	switch {
	case f.StockRatio > 3:
		return -math.Min(current*0.03, 3.0), -2,
			fmt.Sprintf("You have high inventory levels relative to sales velocity (stock ratio %.1f)", f.StockRatio)
	case f.StockRatio < 0.5:
		return math.Min(current*0.02, 2.0), 2,
			fmt.Sprintf("Your inventory is running low relative to sales velocity (stock ratio %.1f)", f.StockRatio)
	}
	return 0, 0, ""
}

func salesPerformanceRule(current float64, f Features) (float64, int, string) {
	v := f.SalesVelocity
	switch {
	case v > 1:
		return math.Min(current*0.02, 2.0), 2,
			fmt.Sprintf("Your product is selling well with %.2f units per day", v)
	case v > 0 && v < 0.2:
		return -math.Min(current*0.04, 4.0), -2,
			fmt.Sprintf("Sales are slow with only %.2f units per day", v)
	}
	return 0, 0, ""
}

func freshnessRule(current float64, f Features) (float64, int, string) {
	if f.DaysSinceLastChange <= 45 {
		return 0, 0, ""
	}

	step := current * 0.01
	if f.PriceHistoryTrend >= 0 {
		return step, 1,
			fmt.Sprintf("Price hasn't been updated in %d days and trend is upward", f.DaysSinceLastChange)
	}
	return -step, 1,
		fmt.Sprintf("Price hasn't been updated in %d days and trend is downward", f.DaysSinceLastChange)
}
