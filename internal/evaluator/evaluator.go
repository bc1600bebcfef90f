// Package evaluator turns matched cross-venue pairs into fee-adjusted
// arbitrage opportunities, or rejects them when neither direction clears the
// profitability bar.
package evaluator

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossbot/internal/domain"
	"github.com/alanyoungcy/crossbot/internal/fees"
)

// feeTolerance bounds the float error allowed when re-checking the
// net = gross - fees identity. Anything beyond it is a programming error.
const feeTolerance = 1e-9

// Config holds evaluator parameters.
type Config struct {
	PositionSize       float64 // contracts per leg
	MinProfitThreshold float64 // dollars
	TrailingVolume     float64 // operator's trailing 30-period Kalshi volume
}

// Evaluator prices the two mutually exclusive strategies for a matched pair
// and keeps the better one.
type Evaluator struct {
	cfg      Config
	schedule fees.Schedule
	logger   *slog.Logger
}

// New creates an Evaluator.
func New(cfg Config, schedule fees.Schedule, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		schedule: schedule,
		logger:   logger.With(slog.String("component", "evaluator")),
	}
}

// Evaluate returns the better of the two arbitrage strategies for the pair,
// or domain.ErrNoOpportunity when the winner does not clear the threshold.
// Malformed listings return domain.ErrMalformedListing; fee defects return
// domain.ErrFeeDefect; a broken arithmetic identity returns
// domain.ErrInvariantViolation.
func (e *Evaluator) Evaluate(pair domain.MatchedPair) (domain.Opportunity, error) {
	if e.cfg.PositionSize <= 0 || math.IsNaN(e.cfg.PositionSize) {
		return domain.Opportunity{}, fmt.Errorf("evaluator: position size %v: %w",
			e.cfg.PositionSize, domain.ErrMalformedListing)
	}
	if !pair.Kalshi.Valid() || !pair.Polymarket.Valid() {
		return domain.Opportunity{}, fmt.Errorf("evaluator: pair %s/%s: %w",
			pair.Kalshi.ID, pair.Polymarket.ID, domain.ErrMalformedListing)
	}

	a, err := e.price(pair, domain.StrategyKalshiYesPolyNo,
		pair.Kalshi.YesPrice, pair.Polymarket.NoPrice)
	if err != nil {
		return domain.Opportunity{}, err
	}
	b, err := e.price(pair, domain.StrategyKalshiNoPolyYes,
		pair.Kalshi.NoPrice, pair.Polymarket.YesPrice)
	if err != nil {
		return domain.Opportunity{}, err
	}

	best := a
	if b.NetProfit > best.NetProfit ||
		(b.NetProfit == best.NetProfit && b.ROI > best.ROI) {
		best = b
	}

	if !best.Actionable(e.cfg.MinProfitThreshold) {
		return domain.Opportunity{}, fmt.Errorf(
			"evaluator: pair %s/%s net %.4f below threshold %.4f: %w",
			pair.Kalshi.ID, pair.Polymarket.ID,
			best.NetProfit, e.cfg.MinProfitThreshold, domain.ErrNoOpportunity)
	}

	best.ID = uuid.NewString()
	best.DetectedAt = time.Now().UTC()
	return best, nil
}

// price computes one strategy's economics at size s contracts per leg.
// gross = (1 - kalshiLeg - polyLeg) x s: buying opposite sides on the two
// venues guarantees a $1 payout per contract, so any shortfall of the
// combined price below $1 is locked-in profit.
func (e *Evaluator) price(pair domain.MatchedPair, strat domain.ArbStrategy, kalshiLeg, polyLeg float64) (domain.Opportunity, error) {
	s := e.cfg.PositionSize
	gross := (1 - kalshiLeg - polyLeg) * s

	kalshiFee, err := e.schedule.Fee(fees.Input{
		Venue:          domain.VenueKalshi,
		Side:           domain.SideTaker,
		Price:          kalshiLeg,
		Size:           s,
		TrailingVolume: e.cfg.TrailingVolume,
	})
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("evaluator: kalshi leg: %w", err)
	}
	polyFee, err := e.schedule.Fee(fees.Input{
		Venue:          domain.VenuePolymarket,
		Side:           domain.SideTaker,
		Price:          polyLeg,
		Size:           s,
		RealizedProfit: gross,
	})
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("evaluator: polymarket leg: %w", err)
	}

	if err := checkFee(kalshiFee, s); err != nil {
		return domain.Opportunity{}, fmt.Errorf("evaluator: kalshi fee %v: %w", kalshiFee, err)
	}
	if err := checkFee(polyFee, s); err != nil {
		return domain.Opportunity{}, fmt.Errorf("evaluator: polymarket fee %v: %w", polyFee, err)
	}

	totalFees := kalshiFee + polyFee
	net := gross - totalFees
	cost := (kalshiLeg + polyLeg) * s

	opp := domain.Opportunity{
		Pair:        pair,
		Strategy:    strat,
		KalshiPrice: kalshiLeg,
		PolyPrice:   polyLeg,
		Size:        s,
		GrossProfit: gross,
		TotalFees:   totalFees,
		NetProfit:   net,
		TotalCost:   cost,
	}
	if cost > 0 {
		opp.ROI = net / cost
	}

	if math.Abs(opp.NetProfit-(opp.GrossProfit-opp.TotalFees)) > feeTolerance {
		return domain.Opportunity{}, fmt.Errorf(
			"evaluator: net %.12f != gross %.12f - fees %.12f: %w",
			opp.NetProfit, opp.GrossProfit, opp.TotalFees, domain.ErrInvariantViolation)
	}
	return opp, nil
}

// checkFee classifies impossible fee values as defects so they are discarded
// with a diagnostic instead of propagating into a decision.
func checkFee(fee, size float64) error {
	if math.IsNaN(fee) || fee < 0 {
		return domain.ErrFeeDefect
	}
	if fee > size { // $1 payout per contract
		return domain.ErrFeeDefect
	}
	return nil
}
