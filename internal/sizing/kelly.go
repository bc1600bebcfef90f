// Package sizing implements Kelly-criterion position sizing. Sizing is a
// pure computation; risk gating lives in the circuit breaker and the two are
// composed by the decision council.
package sizing

import "math"

// KellyFraction returns the raw Kelly bet fraction f* = (b*p - q) / b for
// win probability p and net odds b, clipped to [0, maxFraction]. A
// non-positive edge yields 0, never a short position.
func KellyFraction(p, b, maxFraction float64) float64 {
	if b <= 0 || math.IsNaN(p) || math.IsNaN(b) {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	q := 1 - p
	f := (b*p - q) / b
	if f < 0 {
		return 0
	}
	if maxFraction >= 0 && f > maxFraction {
		f = maxFraction
	}
	return f
}

// Size converts the clipped Kelly fraction into a dollar bet against the
// bankroll. Output is always within [0, maxFraction*bankroll].
func Size(p, b, bankroll, maxFraction float64) float64 {
	if bankroll <= 0 {
		return 0
	}
	return KellyFraction(p, b, maxFraction) * bankroll
}

// OddsFromPrice derives the net odds b offered by a binary contract priced
// in (0,1): staking price to win a $1 payout pays b = (1-price)/price.
func OddsFromPrice(price float64) float64 {
	if price <= 0 || price >= 1 {
		return 0
	}
	return (1 - price) / price
}
