package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// ArbApproved formats and sends the alert for a council-approved opportunity.
func (n *Notifier) ArbApproved(ctx context.Context, opp domain.Opportunity, d domain.Decision) error {
	title := fmt.Sprintf("Arb approved: %s", opp.Strategy)
	msg := fmt.Sprintf(
		"%s\nvs %s\nnet $%.2f (roi %.2f%%), size %.1f, council %.2f\nkalshi %s @ %.2f | polymarket %s @ %.2f",
		opp.Pair.Kalshi.Title, opp.Pair.Polymarket.Title,
		opp.NetProfit, opp.ROI*100, d.Size, d.Confidence,
		opp.Pair.Kalshi.ID, opp.KalshiPrice, opp.Pair.Polymarket.ID, opp.PolyPrice,
	)
	event := EventArbApproved
	if d.Degraded {
		msg += "\n(decided without advisory input)"
	}
	return n.Notify(ctx, event, title, msg)
}

// BreakerHalted formats and sends the alert for a tripped circuit breaker.
func (n *Notifier) BreakerHalted(ctx context.Context, state domain.RiskState) error {
	title := "Circuit breaker halted"
	msg := fmt.Sprintf(
		"reason: %s\nequity $%.2f (peak $%.2f, drawdown %.1f%%)\ndaily pnl $%.2f, loss streak %d",
		state.HaltReason,
		state.Equity, state.PeakEquity, state.CurrentDrawdownPct*100,
		state.DailyPnL, state.ConsecutiveLosses,
	)
	return n.Notify(ctx, EventBreakerHalted, title, msg)
}

// BreakerReset announces an operator re-arming the breaker.
func (n *Notifier) BreakerReset(ctx context.Context, state domain.RiskState) error {
	msg := fmt.Sprintf("equity $%.2f, daily pnl $%.2f", state.Equity, state.DailyPnL)
	return n.Notify(ctx, EventBreakerReset, "Circuit breaker reset", msg)
}
