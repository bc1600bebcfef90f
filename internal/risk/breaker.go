// Package risk implements the trading circuit breaker: a small state machine
// that halts trading when drawdown, daily loss, or consecutive-loss limits
// are breached. The breaker is the single owner of RiskState; every mutation
// goes through its lock so snapshots are always internally consistent.
package risk

import (
	"log/slog"
	"sync"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Limits holds the configured trip thresholds.
type Limits struct {
	MaxDrawdownPct       float64 // e.g. 0.20 for 20%
	MaxDailyLoss         float64 // dollars
	MaxConsecutiveLosses int
}

// Breaker tracks equity, drawdown, and loss streaks across recorded trade
// outcomes. Once Halted it stays Halted until an explicit Reset; reads never
// cause transitions.
type Breaker struct {
	mu     sync.Mutex
	limits Limits
	state  domain.RiskState
	logger *slog.Logger
}

// New creates a Breaker in the Active state with the given starting equity.
func New(limits Limits, startingEquity float64, logger *slog.Logger) *Breaker {
	return &Breaker{
		limits: limits,
		state: domain.RiskState{
			Equity:     startingEquity,
			PeakEquity: startingEquity,
		},
		logger: logger.With(slog.String("component", "circuit_breaker")),
	}
}

// RecordOutcome applies one signed trade pnl to the state and returns the
// resulting snapshot. Counters update unconditionally, even while Halted, so
// the state stays consistent for an eventual reset; the Active->Halted
// transition only fires from Active. The whole update is atomic: a caller
// observing the snapshot never sees a partially applied outcome.
func (b *Breaker) RecordOutcome(pnl float64) domain.RiskState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &b.state
	s.Equity += pnl
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	if s.PeakEquity > 0 {
		s.CurrentDrawdownPct = (s.PeakEquity - s.Equity) / s.PeakEquity
	} else {
		s.CurrentDrawdownPct = 0
	}
	s.DailyPnL += pnl
	if pnl > 0 {
		s.ConsecutiveLosses = 0
	} else {
		s.ConsecutiveLosses++
	}

	if !s.Halted {
		if reason := b.tripReasonLocked(); reason != domain.HaltReasonNone {
			s.Halted = true
			s.HaltReason = reason
			b.logger.Warn("circuit breaker tripped",
				slog.String("reason", string(reason)),
				slog.Float64("equity", s.Equity),
				slog.Float64("drawdown_pct", s.CurrentDrawdownPct),
				slog.Float64("daily_pnl", s.DailyPnL),
				slog.Int("consecutive_losses", s.ConsecutiveLosses),
			)
		}
	}
	return *s
}

// tripReasonLocked checks the three limits in a fixed order and returns the
// first breached one. Caller holds b.mu.
func (b *Breaker) tripReasonLocked() domain.HaltReason {
	s := &b.state
	if b.limits.MaxDrawdownPct > 0 && s.CurrentDrawdownPct >= b.limits.MaxDrawdownPct {
		return domain.HaltReasonDrawdown
	}
	if b.limits.MaxDailyLoss > 0 && s.DailyPnL <= -b.limits.MaxDailyLoss {
		return domain.HaltReasonDailyLoss
	}
	if b.limits.MaxConsecutiveLosses > 0 && s.ConsecutiveLosses >= b.limits.MaxConsecutiveLosses {
		return domain.HaltReasonConsecutiveLosses
	}
	return domain.HaltReasonNone
}

// Reset is the only Halted->Active transition. It clears the loss streak and
// halt reason but leaves peak equity and daily pnl untouched.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Halted = false
	b.state.HaltReason = domain.HaltReasonNone
	b.state.ConsecutiveLosses = 0
	b.logger.Info("circuit breaker reset")
}

// RollDay handles the external day-boundary signal: daily pnl returns to
// zero regardless of halted state. Nothing else changes.
func (b *Breaker) RollDay() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.DailyPnL = 0
	b.logger.Info("daily pnl rolled over")
}

// IsHalted is a pure query; it never fires a transition.
func (b *Breaker) IsHalted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Halted
}

// Snapshot returns a consistent copy of the current risk state.
func (b *Breaker) Snapshot() domain.RiskState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
