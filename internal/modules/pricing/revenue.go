package pricing

import "fmt"

// EstimateRevenue projects the monthly revenue delta of moving from current to
// final price under a constant-elasticity demand model.
//
// Returns a zero delta and no sentence when the product has no recent sales.
func EstimateRevenue(current, final float64, f Features) (float64, string) {
	if f.SalesVelocity <= 0 || current == 0 {
		return 0, ""
	}

	quantityRatio := 1 + f.PriceElasticity*(final/current-1)
	newVelocity := f.SalesVelocity * quantityRatio

	currentMonthly := f.SalesVelocity * salesWindowDays * current
	newMonthly := newVelocity * salesWindowDays * final
	delta := newMonthly - currentMonthly

	if delta > 0 {
		return delta, fmt.Sprintf("This change could increase monthly revenue by approximately $%.2f", delta)
	}
	return delta, "This price optimizes for long-term market position despite a potential short-term revenue decrease"
}
