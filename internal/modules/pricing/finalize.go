package pricing

import (
	"fmt"
	"math"
)

// OptimalSentence replaces the whole rationale when the change is trivial.
const OptimalSentence = "Current price is optimal based on market conditions"

// minChangeRatio is the smallest relative change worth recommending
const minChangeRatio = 0.01

// Finalize clamps the adjusted price to the product bounds, snaps it to a
// psychological price point and suppresses trivial changes.
//
// Rounding happens after clamping and is not re-clamped, so a clamped price
// may end up to 0.01 outside its bound. The returned bool reports whether the
// change was suppressed as trivial, in which case the price is exactly the
// current price and the rationale is the single OptimalSentence.
func Finalize(price, current float64, product Product, rationale []string) (float64, []string, bool) {
	out := append([]string(nil), rationale...)

	if product.MinimumPrice != nil && price < *product.MinimumPrice {
		price = *product.MinimumPrice
		out = append(out, fmt.Sprintf("Price adjusted to respect your minimum price threshold ($%.2f)", *product.MinimumPrice))
	}

	if product.MaximumPrice != nil && price > *product.MaximumPrice {
		price = *product.MaximumPrice
		out = append(out, fmt.Sprintf("Price adjusted to respect your maximum price threshold ($%.2f)", *product.MaximumPrice))
	}

	price = PsychologicalPrice(price)

	if math.Abs(price-current) < current*minChangeRatio {
		return current, []string{OptimalSentence}, true
	}

	return price, out, false
}

// PsychologicalPrice snaps a price down to the nearest retail price point:
// whole units from 100 up, halves from 10 to 100 and quarters below 10, each
// minus one cent.
func PsychologicalPrice(price float64) float64 {
	switch {
	case price >= 100:
		return math.Floor(price) - 0.01
	case price >= 10:
		return math.Floor(price*2)/2 - 0.01
	default:
		return math.Floor(price*4)/4 - 0.01
	}
}
