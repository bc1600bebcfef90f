package domain

import "time"

// ArbStrategy names the two mutually exclusive ways to lock in a cross-venue
// price mismatch on a binary market.
type ArbStrategy string

const (
	// StrategyKalshiYesPolyNo buys YES on Kalshi and NO on Polymarket.
	StrategyKalshiYesPolyNo ArbStrategy = "kalshi_yes_poly_no"
	// StrategyKalshiNoPolyYes buys NO on Kalshi and YES on Polymarket.
	StrategyKalshiNoPolyYes ArbStrategy = "kalshi_no_poly_yes"
)

// Opportunity is a fee-adjusted arbitrage candidate produced by the
// evaluator. NetProfit = GrossProfit - TotalFees always holds; the evaluator
// treats any deviation as a programming error, not bad data.
type Opportunity struct {
	ID          string
	Pair        MatchedPair
	Strategy    ArbStrategy
	KalshiPrice float64 // price of the Kalshi leg actually bought
	PolyPrice   float64 // price of the Polymarket leg actually bought
	Size        float64 // contracts per leg
	GrossProfit float64
	TotalFees   float64
	NetProfit   float64
	TotalCost   float64 // capital committed across both legs
	ROI         float64 // NetProfit / TotalCost
	DetectedAt  time.Time
}

// Actionable reports whether the opportunity clears the configured
// profitability bar.
func (o Opportunity) Actionable(minProfit float64) bool {
	return o.NetProfit > minProfit
}
