package matching

import "math"

const (
	// MinPrice and MaxPrice bound the open interval a cross-venue price must
	// fall in to be trusted.
	MinPrice = 0.01
	MaxPrice = 0.99

	// IntraSumCeiling is the YES+NO total at or above which a single market
	// is considered fairly priced.
	IntraSumCeiling = 0.95

	DefaultMinSpreadPercent = 2.0
	DefaultMaxSpreadPercent = 100.0
)

// Spread is an accepted price discrepancy.
type Spread struct {
	Spread  float64
	Percent float64
}

// Calculator applies the noise floor and sanity ceiling to raw spreads. The
// fields are used as given; a zero floor accepts any positive spread.
type Calculator struct {
	MinSpreadPercent float64
	MaxSpreadPercent float64
}

// DefaultCalculator uses the 2% floor and 100% ceiling.
var DefaultCalculator = Calculator{
	MinSpreadPercent: DefaultMinSpreadPercent,
	MaxSpreadPercent: DefaultMaxSpreadPercent,
}

// ValidPrice reports whether p lies strictly inside (MinPrice, MaxPrice).
func ValidPrice(p float64) bool {
	return p > MinPrice && p < MaxPrice
}

// Cross measures two venues' YES prices for the same event. The percentage is
// relative to the cheaper side, since that is the side bought.
func (c Calculator) Cross(priceA, priceB float64) (Spread, bool) {
	if !ValidPrice(priceA) || !ValidPrice(priceB) {
		return Spread{}, false
	}
	spread := math.Abs(priceA - priceB)
	pct := spread / math.Min(priceA, priceB) * 100
	if pct <= 0 || pct < c.MinSpreadPercent || pct > c.MaxSpreadPercent {
		return Spread{}, false
	}
	return Spread{Spread: spread, Percent: pct}, true
}

// Intra measures how far a market's YES and NO prices fall short of paying
// out 1. The percentage is the absolute margin per unit staked.
func (c Calculator) Intra(yes, no float64) (Spread, bool) {
	if !(yes >= MinPrice) || !(no >= MinPrice) {
		return Spread{}, false
	}
	sum := yes + no
	if sum >= IntraSumCeiling {
		return Spread{}, false
	}
	spread := 1 - sum
	pct := spread * 100
	if pct < c.MinSpreadPercent {
		return Spread{}, false
	}
	return Spread{Spread: spread, Percent: pct}, true
}

// CrossSpread is Calculator.Cross with the default floor and ceiling.
func CrossSpread(priceA, priceB float64) (Spread, bool) {
	return DefaultCalculator.Cross(priceA, priceB)
}

// IntraGap is Calculator.Intra with the default floor.
func IntraGap(yes, no float64) (Spread, bool) {
	return DefaultCalculator.Intra(yes, no)
}

// FairValue estimates an event's probability as the mean of two venues' prices.
func FairValue(priceA, priceB float64) float64 {
	return (priceA + priceB) / 2
}

// IntraFairValue rescales a market's YES and NO prices so they sum to 1.
func IntraFairValue(yes, no float64) (fairYes, fairNo float64, ok bool) {
	sum := yes + no
	if !(sum > 0) {
		return 0, 0, false
	}
	return yes / sum, no / sum, true
}

// Edge is the expected value of buying at price when the event is worth fair,
// in absolute terms and as a percentage of price.
func Edge(price, fair float64) (ev, evPercent float64) {
	ev = fair - price
	if price == 0 {
		return ev, 0
	}
	return ev, ev / price * 100
}
