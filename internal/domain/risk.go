package domain

// HaltReason tags which limit tripped the circuit breaker.
type HaltReason string

const (
	HaltReasonNone              HaltReason = ""
	HaltReasonDrawdown          HaltReason = "max_drawdown"
	HaltReasonDailyLoss         HaltReason = "max_daily_loss"
	HaltReasonConsecutiveLosses HaltReason = "consecutive_losses"
)

// RiskState is a consistent snapshot of the circuit breaker's internal
// counters. It is only ever produced by the breaker under its lock; callers
// receive a copy and cannot mutate the live state through it.
type RiskState struct {
	Equity             float64
	PeakEquity         float64 // high-water mark, monotonically non-decreasing
	CurrentDrawdownPct float64 // decline of Equity from PeakEquity, in [0,1]
	DailyPnL           float64 // resets only on the day-boundary signal
	ConsecutiveLosses  int
	Halted             bool
	HaltReason         HaltReason
}
