// Package fees implements the venue fee models used when evaluating
// cross-venue arbitrage. All computations are pure and deterministic.
package fees

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Input describes a single fee computation. RealizedProfit is consumed only
// by the Polymarket model, which charges on profit rather than notional.
type Input struct {
	Venue          domain.Venue
	Side           domain.OrderSide
	Price          float64
	Size           float64 // contracts
	TrailingVolume float64 // trailing 30-period volume in dollars (Kalshi tiering)
	RealizedProfit float64 // dollars (Polymarket profit fee base)
}

// tier maps a minimum trailing volume to the taker rate it earns.
type tier struct {
	minVolume float64
	takerRate float64
}

// Kalshi taker tiers, highest volume first. Rates are non-increasing with
// volume; maker fills pay half the taker rate.
var kalshiTiers = []tier{
	{25_000, 0.010},
	{10_000, 0.015},
	{2_500, 0.020},
	{0, 0.025},
}

// Schedule holds the fee parameters for both venues.
type Schedule struct {
	PolyProfitRate float64 // flat rate on realized profit
	PolySurcharge  float64 // fixed settlement cost per trade, dollars
}

// DefaultSchedule returns the production fee parameters.
func DefaultSchedule() Schedule {
	return Schedule{
		PolyProfitRate: 0.02,
		PolySurcharge:  0.01,
	}
}

// KalshiRate returns the percentage rate for the given side and trailing
// volume.
func KalshiRate(side domain.OrderSide, trailingVolume float64) float64 {
	for _, t := range kalshiTiers {
		if trailingVolume >= t.minVolume {
			if side == domain.SideMaker {
				return t.takerRate / 2
			}
			return t.takerRate
		}
	}
	return 0
}

// Fee computes the fee for one trade. The result is always >= 0 and never
// exceeds the payout being fee'd; violations of either bound upstream of
// this guarantee are reported as domain.ErrFeeDefect by the caller's checks.
func (s Schedule) Fee(in Input) (float64, error) {
	if math.IsNaN(in.Price) || in.Price <= 0 || in.Price >= 1 {
		return 0, fmt.Errorf("fees: price %v out of (0,1): %w", in.Price, domain.ErrMalformedListing)
	}
	if math.IsNaN(in.Size) || in.Size <= 0 {
		return 0, fmt.Errorf("fees: non-positive size %v: %w", in.Size, domain.ErrMalformedListing)
	}

	switch in.Venue {
	case domain.VenueKalshi:
		return kalshiFee(in), nil
	case domain.VenuePolymarket:
		return s.polymarketFee(in), nil
	default:
		return 0, fmt.Errorf("fees: unknown venue %q", in.Venue)
	}
}

// kalshiFee is rate(tier, side) x price x size, rounded up to the cent.
// Decimal arithmetic keeps the cent rounding exact.
func kalshiFee(in Input) float64 {
	rate := decimal.NewFromFloat(KalshiRate(in.Side, in.TrailingVolume))
	raw := rate.
		Mul(decimal.NewFromFloat(in.Price)).
		Mul(decimal.NewFromFloat(in.Size))
	cents := raw.Mul(decimal.NewFromInt(100)).Ceil()
	f, _ := cents.Div(decimal.NewFromInt(100)).Float64()
	return f
}

// polymarketFee charges a flat rate on realized profit plus a fixed
// settlement surcharge. Losing or flat trades pay only the surcharge. The
// fee is floored at the payout so it can never exceed what is being fee'd.
func (s Schedule) polymarketFee(in Input) float64 {
	profit := decimal.NewFromFloat(math.Max(in.RealizedProfit, 0))
	fee := profit.Mul(decimal.NewFromFloat(s.PolyProfitRate)).
		Add(decimal.NewFromFloat(s.PolySurcharge))

	payout := decimal.NewFromFloat(in.Size) // $1 payout per contract
	if fee.GreaterThan(payout) {
		fee = payout
	}
	f, _ := fee.Float64()
	return f
}
