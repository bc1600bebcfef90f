// Package scanner drives the scan cycle: fetch listings from both venues,
// match them, evaluate arbitrage opportunities, size the bet, put each
// survivor in front of the council, and persist what comes out.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossbot/internal/council"
	"github.com/alanyoungcy/crossbot/internal/domain"
	"github.com/alanyoungcy/crossbot/internal/evaluator"
	"github.com/alanyoungcy/crossbot/internal/matcher"
	"github.com/alanyoungcy/crossbot/internal/risk"
	"github.com/alanyoungcy/crossbot/internal/sizing"
)

// Config holds scanner parameters.
type Config struct {
	// Interval between scan cycles.
	Interval time.Duration
	// FetchTimeout bounds one venue fetch; a slow venue degrades to an
	// empty listing set rather than stalling the cycle.
	FetchTimeout time.Duration
	// EvalWorkers is the number of pairs evaluated concurrently.
	EvalWorkers int
	// Bankroll and MaxKellyFraction feed the position sizer.
	Bankroll        float64
	MaxKellyFraction float64
	// CooldownWindow suppresses repeat alerts for the same pair.
	CooldownWindow time.Duration
	// Overrides maps Kalshi market IDs to Polymarket market IDs that are
	// known to describe the same proposition.
	Overrides map[string]string
}

// Notifier is the slice of the notification surface the scanner uses.
type Notifier interface {
	ArbApproved(ctx context.Context, opp domain.Opportunity, d domain.Decision) error
	BreakerHalted(ctx context.Context, state domain.RiskState) error
}

// CycleStats summarises one scan cycle for logging and tests.
type CycleStats struct {
	KalshiListings int
	PolyListings   int
	Pairs          int
	Opportunities  int
	Approved       int
	Malformed      int
	FeeDefects     int
	Suppressed     int
}

// Scanner owns the periodic scan loop.
type Scanner struct {
	cfg       Config
	fetchers  []domain.ListingFetcher
	matcher   *matcher.Matcher
	evaluator *evaluator.Evaluator
	breaker   *risk.Breaker
	council   *council.Council

	opps      domain.OpportunityStore
	decisions domain.DecisionStore
	cache     domain.ListingCache
	cooldown  domain.PairCooldown
	notifier  Notifier

	logger *slog.Logger
}

// Deps bundles the collaborators for New. Store, cache, cooldown, and
// notifier fields may be nil; the scanner skips the corresponding step.
type Deps struct {
	Fetchers  []domain.ListingFetcher
	Matcher   *matcher.Matcher
	Evaluator *evaluator.Evaluator
	Breaker   *risk.Breaker
	Council   *council.Council

	Opportunities domain.OpportunityStore
	Decisions     domain.DecisionStore
	Cache         domain.ListingCache
	Cooldown      domain.PairCooldown
	Notifier      Notifier
}

// New creates a Scanner.
func New(cfg Config, deps Deps, logger *slog.Logger) *Scanner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.EvalWorkers <= 0 {
		cfg.EvalWorkers = 4
	}
	return &Scanner{
		cfg:       cfg,
		fetchers:  deps.Fetchers,
		matcher:   deps.Matcher,
		evaluator: deps.Evaluator,
		breaker:   deps.Breaker,
		council:   deps.Council,
		opps:      deps.Opportunities,
		decisions: deps.Decisions,
		cache:     deps.Cache,
		cooldown:  deps.Cooldown,
		notifier:  deps.Notifier,
		logger:    logger.With(slog.String("component", "scanner")),
	}
}

// Run executes scan cycles at the configured interval until ctx is done. The
// first cycle runs immediately.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.ErrorContext(ctx, "scan cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one full scan pass and returns its stats.
func (s *Scanner) Cycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	start := time.Now()

	byVenue := s.fetchAll(ctx)
	kalshi := byVenue[domain.VenueKalshi]
	poly := byVenue[domain.VenuePolymarket]
	stats.KalshiListings = len(kalshi)
	stats.PolyListings = len(poly)

	s.cacheListings(ctx, kalshi, poly)

	pairs := s.matcher.Match(kalshi, poly, s.cfg.Overrides)
	stats.Pairs = len(pairs)

	results := s.evaluateAll(ctx, pairs, &stats)

	for _, opp := range results {
		approved, err := s.decide(ctx, opp, &stats)
		if err != nil {
			s.logger.ErrorContext(ctx, "decision pipeline failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if approved {
			stats.Approved++
		}
	}

	s.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("kalshi", stats.KalshiListings),
		slog.Int("polymarket", stats.PolyListings),
		slog.Int("pairs", stats.Pairs),
		slog.Int("opportunities", stats.Opportunities),
		slog.Int("approved", stats.Approved),
		slog.Int("malformed", stats.Malformed),
		slog.Int("fee_defects", stats.FeeDefects),
		slog.Int("suppressed", stats.Suppressed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return stats, ctx.Err()
}

// RecordOutcome feeds a settled position's pnl into the circuit breaker and
// alerts if the breaker trips on it.
func (s *Scanner) RecordOutcome(ctx context.Context, pnl float64) domain.RiskState {
	wasHalted := s.breaker.IsHalted()
	state := s.breaker.RecordOutcome(pnl)
	if state.Halted && !wasHalted && s.notifier != nil {
		if err := s.notifier.BreakerHalted(ctx, state); err != nil {
			s.logger.ErrorContext(ctx, "halt alert failed", slog.String("error", err.Error()))
		}
	}
	return state
}

// RollDay resets the circuit breaker's daily loss counter. Called by the
// application's UTC-midnight scheduler.
func (s *Scanner) RollDay() {
	s.breaker.RollDay()
}

// fetchAll queries every venue in parallel. A venue that errors or times out
// contributes an empty set for this cycle.
func (s *Scanner) fetchAll(ctx context.Context) map[domain.Venue][]domain.MarketListing {
	byVenue := make(map[domain.Venue][]domain.MarketListing, len(s.fetchers))
	results := make([][]domain.MarketListing, len(s.fetchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range s.fetchers {
		i, f := i, f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.cfg.FetchTimeout)
			defer cancel()

			listings, err := f.FetchListings(fctx)
			if err != nil {
				s.logger.WarnContext(ctx, "venue fetch failed, degrading to empty set",
					slog.String("venue", string(f.Venue())),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = listings
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range s.fetchers {
		byVenue[f.Venue()] = results[i]
	}
	return byVenue
}

// cacheListings writes the cycle's snapshots through to the listing cache.
func (s *Scanner) cacheListings(ctx context.Context, sets ...[]domain.MarketListing) {
	if s.cache == nil {
		return
	}
	for _, set := range sets {
		for _, l := range set {
			if err := s.cache.Set(ctx, l); err != nil {
				s.logger.WarnContext(ctx, "cache write failed",
					slog.String("venue", string(l.Venue)),
					slog.String("id", l.ID),
					slog.String("error", err.Error()),
				)
				return // one failure means the cache is down, stop hammering it
			}
		}
	}
}

// evaluateAll prices pairs concurrently and returns the opportunities that
// cleared the threshold. Per-pair failures are counted, never fatal.
func (s *Scanner) evaluateAll(ctx context.Context, pairs []domain.MatchedPair, stats *CycleStats) []domain.Opportunity {
	type result struct {
		opp domain.Opportunity
		err error
	}

	results := make([]result, len(pairs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EvalWorkers)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			opp, err := s.evaluator.Evaluate(pair)
			results[i] = result{opp: opp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var opps []domain.Opportunity
	for i, r := range results {
		switch {
		case r.err == nil:
			opps = append(opps, r.opp)
			stats.Opportunities++
		case errors.Is(r.err, domain.ErrNoOpportunity):
			// expected for most pairs
		case errors.Is(r.err, domain.ErrMalformedListing):
			stats.Malformed++
		case errors.Is(r.err, domain.ErrFeeDefect), errors.Is(r.err, domain.ErrInvariantViolation):
			stats.FeeDefects++
			s.logger.ErrorContext(ctx, "fee model defect",
				slog.String("kalshi_id", pairs[i].Kalshi.ID),
				slog.String("poly_id", pairs[i].Polymarket.ID),
				slog.String("error", r.err.Error()),
			)
		default:
			s.logger.WarnContext(ctx, "evaluation failed",
				slog.String("kalshi_id", pairs[i].Kalshi.ID),
				slog.String("error", r.err.Error()),
			)
		}
	}
	return opps
}

// decide sizes the bet, runs the council, persists, and alerts. It returns
// whether the opportunity was approved.
func (s *Scanner) decide(ctx context.Context, opp domain.Opportunity, stats *CycleStats) (bool, error) {
	if s.opps != nil {
		if err := s.opps.Insert(ctx, opp); err != nil {
			return false, err
		}
	}

	d := s.council.Decide(ctx, council.Input{
		Opportunity: opp,
		Risk:        s.breaker.Snapshot(),
		SizedBet:    s.sizeBet(opp),
	})

	if s.decisions != nil {
		if err := s.decisions.Insert(ctx, d); err != nil {
			return false, err
		}
	}

	if !d.Approve {
		return false, nil
	}

	if s.cooldown != nil {
		fresh, err := s.cooldown.Mark(ctx, opp.Pair.Kalshi.ID, opp.Pair.Polymarket.ID, s.cfg.CooldownWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "cooldown check failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		} else if !fresh {
			stats.Suppressed++
			return true, nil
		}
	}

	if s.notifier != nil {
		if err := s.notifier.ArbApproved(ctx, opp, d); err != nil {
			s.logger.ErrorContext(ctx, "approval alert failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return true, nil
}

// sizeBet derives the Kelly stake for the opportunity. The win probability
// blends the match confidence with the cross-venue price consensus: two
// venues agreeing on the YES price is evidence the listings really are the
// same proposition resolving as priced.
func (s *Scanner) sizeBet(opp domain.Opportunity) float64 {
	consensus := 1 - abs(opp.Pair.Kalshi.YesPrice-opp.Pair.Polymarket.YesPrice)
	p := clamp01(opp.Pair.Confidence * consensus)

	// The cheaper leg carries the payoff odds.
	entry := opp.KalshiPrice
	if opp.PolyPrice < entry {
		entry = opp.PolyPrice
	}
	b := sizing.OddsFromPrice(entry)

	return sizing.Size(p, b, s.cfg.Bankroll, s.cfg.MaxKellyFraction)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
