package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossbot/internal/council"
	"github.com/alanyoungcy/crossbot/internal/domain"
	"github.com/alanyoungcy/crossbot/internal/evaluator"
	"github.com/alanyoungcy/crossbot/internal/fees"
	"github.com/alanyoungcy/crossbot/internal/matcher"
	"github.com/alanyoungcy/crossbot/internal/risk"
	"github.com/alanyoungcy/crossbot/internal/scanner"
	"github.com/alanyoungcy/crossbot/internal/venue/polymarket"
)

// maxWatchedAssets caps the WebSocket subscription count. The CLOB feed
// degrades with very large subscription sets.
const maxWatchedAssets = 100

// ScanMode runs the periodic arbitrage scan loop: fetch, match, evaluate,
// decide, persist, alert.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	sc := a.buildScanner(deps)
	g.Go(func() error {
		return sc.Run(ctx)
	})

	a.startDayRoll(ctx, g, sc, nil)

	return g.Wait()
}

// MonitorMode is read-only: it keeps the listing cache warm from the
// Polymarket REST API and live WebSocket price feed. No opportunities are
// evaluated and nothing is persisted.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	// Periodic REST refresh of the listing cache.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scanner.ScanInterval.Duration)
		defer ticker.Stop()
		for {
			a.refreshListings(ctx, deps)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	if err := a.startPriceFeed(ctx, g, deps); err != nil {
		a.logger.WarnContext(ctx, "monitor mode: price feed unavailable, REST refresh only",
			slog.String("error", err.Error()),
		)
	}

	return g.Wait()
}

// FullMode runs the scan loop plus the live price feed, the UTC day roll,
// and daily decision archiving.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	sc := a.buildScanner(deps)
	g.Go(func() error {
		return sc.Run(ctx)
	})

	if err := a.startPriceFeed(ctx, g, deps); err != nil {
		a.logger.WarnContext(ctx, "full mode: price feed unavailable, scan cycles only",
			slog.String("error", err.Error()),
		)
	}

	a.startDayRoll(ctx, g, sc, deps.Archiver)

	return g.Wait()
}

// buildScanner assembles the decision core from configuration and wired
// dependencies.
func (a *App) buildScanner(deps *Dependencies) *scanner.Scanner {
	m := matcher.New(a.cfg.Matcher.ConfidenceThreshold, a.logger)

	ev := evaluator.New(evaluator.Config{
		PositionSize:       a.cfg.Scanner.PositionSize,
		MinProfitThreshold: a.cfg.Scanner.MinProfitThreshold,
		TrailingVolume:     a.cfg.Scanner.TrailingVolume,
	}, fees.DefaultSchedule(), a.logger)

	breaker := risk.New(risk.Limits{
		MaxDrawdownPct:       a.cfg.Risk.MaxDrawdownPct,
		MaxDailyLoss:         a.cfg.Risk.MaxDailyLoss,
		MaxConsecutiveLosses: a.cfg.Risk.MaxConsecutiveLosses,
	}, a.cfg.Risk.StartingEquity, a.logger)

	cl := council.New(council.Config{
		ApprovalThreshold: a.cfg.Council.ApprovalThreshold,
		Weights: council.Weights{
			Risk:      a.cfg.Council.RiskWeight,
			Value:     a.cfg.Council.ValueWeight,
			Timing:    a.cfg.Council.TimingWeight,
			Sentiment: a.cfg.Council.SentimentWeight,
		},
		VetoConsecutiveLosses: a.cfg.Council.VetoConsecutiveLosses,
		AdvisoryTimeout:       a.cfg.Council.AdvisoryTimeout.Duration,
	}, deps.Advisor, a.logger)

	fetchers := []domain.ListingFetcher{deps.Polymarket}
	if deps.Kalshi != nil {
		fetchers = append(fetchers, deps.Kalshi)
	}

	return scanner.New(scanner.Config{
		Interval:         a.cfg.Scanner.ScanInterval.Duration,
		FetchTimeout:     a.cfg.Scanner.FetchTimeout.Duration,
		EvalWorkers:      a.cfg.Scanner.EvalWorkers,
		Bankroll:         a.cfg.Sizing.Bankroll,
		MaxKellyFraction: a.cfg.Sizing.MaxKellyFraction,
		CooldownWindow:   a.cfg.Scanner.CooldownWindow.Duration,
		Overrides:        a.cfg.Matcher.MarketMap,
	}, scanner.Deps{
		Fetchers:      fetchers,
		Matcher:       m,
		Evaluator:     ev,
		Breaker:       breaker,
		Council:       cl,
		Opportunities: deps.Opportunities,
		Decisions:     deps.Decisions,
		Cache:         deps.ListingCache,
		Cooldown:      deps.Cooldown,
		Notifier:      deps.Notifier,
	}, a.logger)
}

// startPriceFeed connects the Polymarket WebSocket feed and pushes live
// price changes into the listing cache. Subscriptions come from the Gamma
// token bindings of the most active binary markets.
func (a *App) startPriceFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if a.cfg.Polymarket.WsHost == "" {
		return fmt.Errorf("polymarket ws_host not configured")
	}

	bindings, err := deps.Polymarket.FetchTokenBindings(ctx, maxWatchedAssets)
	if err != nil {
		return fmt.Errorf("fetch token bindings: %w", err)
	}
	if len(bindings) == 0 {
		return fmt.Errorf("no watchable markets")
	}

	feed := polymarket.NewFeed(a.cfg.Polymarket.WsHost)
	if err := feed.Connect(ctx); err != nil {
		return err
	}

	for _, b := range bindings {
		if err := feed.Watch(ctx, b.MarketID, b.YesAsset, b.NoAsset); err != nil {
			_ = feed.Close()
			return err
		}
	}

	feed.OnPriceUpdate(func(u polymarket.PriceUpdate) {
		// Complement pricing holds for midpoints on binary markets.
		yes, no := u.Price, 1-u.Price
		if u.Outcome == "no" {
			yes, no = no, yes
		}
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := deps.ListingCache.SetPrice(cacheCtx, domain.VenuePolymarket, u.MarketID, yes, no, u.At); err != nil {
			a.logger.Warn("price feed: cache update failed",
				slog.String("market_id", u.MarketID),
				slog.String("error", err.Error()),
			)
		}
	})

	a.logger.InfoContext(ctx, "price feed connected",
		slog.Int("markets", len(bindings)),
	)

	g.Go(func() error {
		<-ctx.Done()
		_ = feed.Close()
		return ctx.Err()
	})

	return nil
}

// startDayRoll schedules the UTC-midnight housekeeping: the circuit
// breaker's daily loss counter resets, and when an archiver is wired, aged
// decisions move to cold storage.
func (a *App) startDayRoll(ctx context.Context, g *errgroup.Group, sc *scanner.Scanner, archiver domain.Archiver) {
	g.Go(func() error {
		for {
			now := time.Now().UTC()
			next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			sc.RollDay()
			a.logger.InfoContext(ctx, "daily loss counter reset")

			if archiver != nil {
				cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.S3.ArchiveRetentionDays)
				archived, err := archiver.ArchiveDecisions(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "decision archive failed",
						slog.Int64("archived", archived),
						slog.String("error", err.Error()),
					)
				} else if archived > 0 {
					a.logger.InfoContext(ctx, "archived aged decisions",
						slog.Int64("archived", archived),
						slog.Time("cutoff", cutoff),
					)
				}
			}
		}
	})
}

// refreshListings fetches active Polymarket markets over REST and caches
// them. Monitor mode tolerates venue failures; the next tick retries.
func (a *App) refreshListings(ctx context.Context, deps *Dependencies) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.Scanner.FetchTimeout.Duration)
	defer cancel()

	listings, err := deps.Polymarket.FetchListings(fetchCtx)
	if err != nil {
		a.logger.WarnContext(ctx, "listing refresh failed",
			slog.String("error", err.Error()),
		)
		return
	}
	for _, l := range listings {
		if err := deps.ListingCache.Set(ctx, l); err != nil {
			a.logger.WarnContext(ctx, "listing cache write failed",
				slog.String("market_id", l.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}
