package domain

import (
	"math"
	"time"
)

// Venue identifies one of the two prediction-market platforms being compared.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// OrderSide distinguishes maker (resting limit) fills from taker (market)
// fills for fee purposes.
type OrderSide string

const (
	SideMaker OrderSide = "maker"
	SideTaker OrderSide = "taker"
)

// MarketListing is an immutable snapshot of one binary market on one venue,
// taken at the start of a scan cycle and discarded after evaluation.
type MarketListing struct {
	Venue          Venue
	ID             string
	Title          string
	YesPrice       float64
	NoPrice        float64
	TrailingVolume float64 // 30-period traded volume in dollars, drives the fee tier
	CloseTime      time.Time
	FetchedAt      time.Time
}

// Valid reports whether the listing carries usable prices. Listings failing
// this check are excluded from evaluation with a counted diagnostic.
func (l MarketListing) Valid() bool {
	if l.ID == "" {
		return false
	}
	if math.IsNaN(l.YesPrice) || math.IsNaN(l.NoPrice) {
		return false
	}
	if l.YesPrice <= 0 || l.YesPrice >= 1 {
		return false
	}
	if l.NoPrice <= 0 || l.NoPrice >= 1 {
		return false
	}
	return true
}
