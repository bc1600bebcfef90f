package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/crossbot/internal/council"
	"github.com/alanyoungcy/crossbot/internal/domain"
	"github.com/alanyoungcy/crossbot/internal/evaluator"
	"github.com/alanyoungcy/crossbot/internal/fees"
	"github.com/alanyoungcy/crossbot/internal/matcher"
	"github.com/alanyoungcy/crossbot/internal/risk"
)

type fakeFetcher struct {
	venue    domain.Venue
	listings []domain.MarketListing
	err      error
}

func (f *fakeFetcher) Venue() domain.Venue { return f.venue }

func (f *fakeFetcher) FetchListings(ctx context.Context) ([]domain.MarketListing, error) {
	return f.listings, f.err
}

type memOppStore struct {
	mu   sync.Mutex
	opps []domain.Opportunity
}

func (m *memOppStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opps = append(m.opps, opp)
	return nil
}

func (m *memOppStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return m.opps, nil
}

type memDecisionStore struct {
	mu        sync.Mutex
	decisions []domain.Decision
}

func (m *memDecisionStore) Insert(ctx context.Context, d domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *memDecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.Decision, error) {
	return m.decisions, nil
}

func (m *memDecisionStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Decision, error) {
	return nil, nil
}

func (m *memDecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type stubCooldown struct {
	fresh bool
	calls int
}

func (s *stubCooldown) Mark(ctx context.Context, kalshiID, polyID string, window time.Duration) (bool, error) {
	s.calls++
	return s.fresh, nil
}

type recordingNotifier struct {
	approved int
	halted   int
}

func (r *recordingNotifier) ArbApproved(ctx context.Context, opp domain.Opportunity, d domain.Decision) error {
	r.approved++
	return nil
}

func (r *recordingNotifier) BreakerHalted(ctx context.Context, state domain.RiskState) error {
	r.halted++
	return nil
}

type stubAdvisor struct{ score float64 }

func (s *stubAdvisor) Advise(ctx context.Context, description string) (domain.Advice, error) {
	return domain.Advice{Score: s.score, Confidence: 0.9, Rationale: "stub"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func arbListings() (domain.MarketListing, domain.MarketListing) {
	close := time.Now().Add(48 * time.Hour)
	k := domain.MarketListing{
		Venue: domain.VenueKalshi, ID: "FED-MAR", Title: "Fed cuts rates in March",
		YesPrice: 0.45, NoPrice: 0.55, TrailingVolume: 1000,
		CloseTime: close, FetchedAt: time.Now(),
	}
	p := domain.MarketListing{
		Venue: domain.VenuePolymarket, ID: "0xfed", Title: "Fed rate cut happens in March",
		YesPrice: 0.42, NoPrice: 0.58, TrailingVolume: 9000,
		CloseTime: close, FetchedAt: time.Now(),
	}
	return k, p
}

func newTestScanner(t *testing.T, deps Deps, cfg Config) *Scanner {
	t.Helper()
	logger := testLogger()
	if deps.Matcher == nil {
		deps.Matcher = matcher.New(0.4, logger)
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluator.New(evaluator.Config{
			PositionSize:       5,
			MinProfitThreshold: 0.01,
			TrailingVolume:     1000,
		}, fees.DefaultSchedule(), logger)
	}
	if deps.Breaker == nil {
		deps.Breaker = risk.New(risk.Limits{
			MaxDrawdownPct:       0.2,
			MaxDailyLoss:         500,
			MaxConsecutiveLosses: 3,
		}, 1000, logger)
	}
	if deps.Council == nil {
		deps.Council = council.New(council.Config{
			ApprovalThreshold:     0.5,
			Weights:               council.DefaultWeights(),
			VetoConsecutiveLosses: 2,
			AdvisoryTimeout:       time.Second,
		}, &stubAdvisor{score: 0.9}, logger)
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Bankroll == 0 {
		cfg.Bankroll = 1000
	}
	if cfg.MaxKellyFraction == 0 {
		cfg.MaxKellyFraction = 0.25
	}
	return New(cfg, deps, logger)
}

func TestCycleApprovesProfitablePair(t *testing.T) {
	k, p := arbListings()
	opps := &memOppStore{}
	decs := &memDecisionStore{}
	notif := &recordingNotifier{}

	s := newTestScanner(t, Deps{
		Fetchers: []domain.ListingFetcher{
			&fakeFetcher{venue: domain.VenueKalshi, listings: []domain.MarketListing{k}},
			&fakeFetcher{venue: domain.VenuePolymarket, listings: []domain.MarketListing{p}},
		},
		Opportunities: opps,
		Decisions:     decs,
		Notifier:      notif,
	}, Config{
		Overrides: map[string]string{"FED-MAR": "0xfed"},
	})

	stats, err := s.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if stats.Pairs != 1 {
		t.Fatalf("Pairs = %d, want 1", stats.Pairs)
	}
	if stats.Opportunities != 1 {
		t.Fatalf("Opportunities = %d, want 1", stats.Opportunities)
	}
	if stats.Approved != 1 {
		t.Fatalf("Approved = %d, want 1", stats.Approved)
	}

	if len(opps.opps) != 1 {
		t.Fatalf("stored opportunities = %d, want 1", len(opps.opps))
	}
	if opps.opps[0].Strategy != domain.StrategyKalshiNoPolyYes {
		t.Fatalf("Strategy = %s", opps.opps[0].Strategy)
	}

	if len(decs.decisions) != 1 {
		t.Fatalf("stored decisions = %d, want 1", len(decs.decisions))
	}
	d := decs.decisions[0]
	if !d.Approve {
		t.Fatalf("decision rejected: %s", d.Reasoning)
	}
	if d.Size <= 0 {
		t.Fatalf("approved decision has size %v", d.Size)
	}
	if d.Size > 0.25*1000 {
		t.Fatalf("size %v exceeds Kelly cap", d.Size)
	}
	if notif.approved != 1 {
		t.Fatalf("approval alerts = %d, want 1", notif.approved)
	}
}

func TestCycleDegradesOnVenueFailure(t *testing.T) {
	_, p := arbListings()
	s := newTestScanner(t, Deps{
		Fetchers: []domain.ListingFetcher{
			&fakeFetcher{venue: domain.VenueKalshi, err: errors.New("upstream 500")},
			&fakeFetcher{venue: domain.VenuePolymarket, listings: []domain.MarketListing{p}},
		},
	}, Config{})

	stats, err := s.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if stats.KalshiListings != 0 {
		t.Fatalf("KalshiListings = %d, want 0 after fetch failure", stats.KalshiListings)
	}
	if stats.PolyListings != 1 {
		t.Fatalf("PolyListings = %d, want 1", stats.PolyListings)
	}
	if stats.Pairs != 0 {
		t.Fatalf("Pairs = %d, want 0", stats.Pairs)
	}
}

func TestCycleCooldownSuppressesAlert(t *testing.T) {
	k, p := arbListings()
	notif := &recordingNotifier{}
	cd := &stubCooldown{fresh: false}

	s := newTestScanner(t, Deps{
		Fetchers: []domain.ListingFetcher{
			&fakeFetcher{venue: domain.VenueKalshi, listings: []domain.MarketListing{k}},
			&fakeFetcher{venue: domain.VenuePolymarket, listings: []domain.MarketListing{p}},
		},
		Cooldown: cd,
		Notifier: notif,
	}, Config{
		Overrides:      map[string]string{"FED-MAR": "0xfed"},
		CooldownWindow: time.Hour,
	})

	stats, err := s.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if stats.Approved != 1 {
		t.Fatalf("Approved = %d, want 1", stats.Approved)
	}
	if stats.Suppressed != 1 {
		t.Fatalf("Suppressed = %d, want 1", stats.Suppressed)
	}
	if cd.calls != 1 {
		t.Fatalf("cooldown calls = %d, want 1", cd.calls)
	}
	if notif.approved != 0 {
		t.Fatalf("approval alerts = %d, want 0 while cooling down", notif.approved)
	}
}

func TestCycleHaltedBreakerRejectsEverything(t *testing.T) {
	k, p := arbListings()
	logger := testLogger()
	breaker := risk.New(risk.Limits{MaxConsecutiveLosses: 1}, 1000, logger)
	breaker.RecordOutcome(-10) // trips immediately

	decs := &memDecisionStore{}
	s := newTestScanner(t, Deps{
		Fetchers: []domain.ListingFetcher{
			&fakeFetcher{venue: domain.VenueKalshi, listings: []domain.MarketListing{k}},
			&fakeFetcher{venue: domain.VenuePolymarket, listings: []domain.MarketListing{p}},
		},
		Breaker:   breaker,
		Decisions: decs,
	}, Config{
		Overrides: map[string]string{"FED-MAR": "0xfed"},
	})

	stats, err := s.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if stats.Approved != 0 {
		t.Fatalf("Approved = %d, want 0 while halted", stats.Approved)
	}
	if len(decs.decisions) != 1 || decs.decisions[0].Approve {
		t.Fatal("halted cycle must record a rejecting decision")
	}
}

func TestRecordOutcomeAlertsOnHalt(t *testing.T) {
	notif := &recordingNotifier{}
	s := newTestScanner(t, Deps{Notifier: notif}, Config{})

	s.RecordOutcome(context.Background(), -10)
	s.RecordOutcome(context.Background(), -10)
	state := s.RecordOutcome(context.Background(), -10)

	if !state.Halted {
		t.Fatal("three losses should trip the breaker")
	}
	if notif.halted != 1 {
		t.Fatalf("halt alerts = %d, want exactly 1", notif.halted)
	}
}
