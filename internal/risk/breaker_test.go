package risk

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

func newTestBreaker(limits Limits, equity float64) *Breaker {
	return New(limits, equity, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecordOutcome_ConsecutiveLossTrip(t *testing.T) {
	b := newTestBreaker(Limits{
		MaxDrawdownPct:       0.50,
		MaxDailyLoss:         1_000,
		MaxConsecutiveLosses: 3,
	}, 1000)

	b.RecordOutcome(-10)
	b.RecordOutcome(-10)
	if b.IsHalted() {
		t.Fatal("halted after two losses, limit is three")
	}
	s := b.RecordOutcome(-10)
	if !s.Halted {
		t.Fatal("not halted after three consecutive losses")
	}
	if s.HaltReason != domain.HaltReasonConsecutiveLosses {
		t.Fatalf("halt reason %q want %q", s.HaltReason, domain.HaltReasonConsecutiveLosses)
	}
}

func TestRecordOutcome_WinWhileHaltedUpdatesButStaysHalted(t *testing.T) {
	b := newTestBreaker(Limits{MaxConsecutiveLosses: 3}, 1000)
	for i := 0; i < 3; i++ {
		b.RecordOutcome(-10)
	}
	if !b.IsHalted() {
		t.Fatal("breaker should be halted")
	}

	s := b.RecordOutcome(25)
	if s.ConsecutiveLosses != 0 {
		t.Fatalf("consecutive losses=%d want 0 after a win", s.ConsecutiveLosses)
	}
	if !s.Halted {
		t.Fatal("a profitable outcome must not clear the halt; only Reset does")
	}
	if s.Equity != 1000-30+25 {
		t.Fatalf("equity=%v want %v", s.Equity, 1000-30+25)
	}
}

func TestRecordOutcome_DrawdownTrip(t *testing.T) {
	b := newTestBreaker(Limits{MaxDrawdownPct: 0.20}, 1000)
	b.RecordOutcome(500) // peak 1500
	s := b.RecordOutcome(-300)
	if !s.Halted || s.HaltReason != domain.HaltReasonDrawdown {
		t.Fatalf("state=%+v want drawdown halt", s)
	}
	if math.Abs(s.CurrentDrawdownPct-0.2) > 1e-12 {
		t.Fatalf("drawdown=%v want 0.2", s.CurrentDrawdownPct)
	}
}

func TestRecordOutcome_DailyLossTrip(t *testing.T) {
	b := newTestBreaker(Limits{MaxDrawdownPct: 0.99, MaxDailyLoss: 100}, 10_000)
	b.RecordOutcome(-60)
	b.RecordOutcome(40) // win breaks the streak, daily pnl -20
	s := b.RecordOutcome(-85)
	if !s.Halted || s.HaltReason != domain.HaltReasonDailyLoss {
		t.Fatalf("state=%+v want daily loss halt", s)
	}
}

func TestPeakEquity_Monotone(t *testing.T) {
	b := newTestBreaker(Limits{}, 100)
	peaks := []float64{}
	for _, pnl := range []float64{50, -120, 30, 200, -10, -10} {
		peaks = append(peaks, b.RecordOutcome(pnl).PeakEquity)
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i] < peaks[i-1] {
			t.Fatalf("peak equity decreased: %v -> %v", peaks[i-1], peaks[i])
		}
	}
}

func TestReset_ClearsStreakKeepsPeakAndDaily(t *testing.T) {
	b := newTestBreaker(Limits{MaxConsecutiveLosses: 2}, 1000)
	b.RecordOutcome(-5)
	b.RecordOutcome(-5)
	before := b.Snapshot()
	if !before.Halted {
		t.Fatal("expected halt")
	}

	b.Reset()
	s := b.Snapshot()
	if s.Halted || s.HaltReason != domain.HaltReasonNone {
		t.Fatalf("reset left halt in place: %+v", s)
	}
	if s.ConsecutiveLosses != 0 {
		t.Fatalf("consecutive losses=%d want 0", s.ConsecutiveLosses)
	}
	if s.PeakEquity != before.PeakEquity {
		t.Fatalf("reset changed peak equity %v -> %v", before.PeakEquity, s.PeakEquity)
	}
	if s.DailyPnL != before.DailyPnL {
		t.Fatalf("reset changed daily pnl %v -> %v", before.DailyPnL, s.DailyPnL)
	}
}

func TestRollDay_ZeroesDailyPnLOnly(t *testing.T) {
	b := newTestBreaker(Limits{MaxConsecutiveLosses: 2}, 1000)
	b.RecordOutcome(-5)
	b.RecordOutcome(-5)
	b.RollDay()
	s := b.Snapshot()
	if s.DailyPnL != 0 {
		t.Fatalf("daily pnl=%v want 0", s.DailyPnL)
	}
	if !s.Halted {
		t.Fatal("day boundary must not clear the halt")
	}
	if s.ConsecutiveLosses != 2 {
		t.Fatalf("consecutive losses=%d want 2", s.ConsecutiveLosses)
	}
}

func TestIsHalted_PureQuery(t *testing.T) {
	b := newTestBreaker(Limits{MaxConsecutiveLosses: 1}, 100)
	b.RecordOutcome(-1)
	before := b.Snapshot()
	for i := 0; i < 10; i++ {
		b.IsHalted()
	}
	if after := b.Snapshot(); after != before {
		t.Fatalf("IsHalted mutated state: %+v -> %+v", before, after)
	}
}

func TestRecordOutcome_ConcurrentCallersKeepConsistency(t *testing.T) {
	b := newTestBreaker(Limits{}, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.RecordOutcome(1)
			}
		}()
	}
	wg.Wait()
	s := b.Snapshot()
	if s.Equity != 800 || s.PeakEquity != 800 {
		t.Fatalf("equity=%v peak=%v want 800/800", s.Equity, s.PeakEquity)
	}
}
