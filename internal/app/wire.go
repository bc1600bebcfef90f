package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyoungcy/crossbot/internal/advisory"
	s3blob "github.com/alanyoungcy/crossbot/internal/blob/s3"
	"github.com/alanyoungcy/crossbot/internal/cache/redis"
	"github.com/alanyoungcy/crossbot/internal/config"
	"github.com/alanyoungcy/crossbot/internal/domain"
	"github.com/alanyoungcy/crossbot/internal/notify"
	"github.com/alanyoungcy/crossbot/internal/store/postgres"
	"github.com/alanyoungcy/crossbot/internal/venue/kalshi"
	"github.com/alanyoungcy/crossbot/internal/venue/polymarket"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Venue clients. Kalshi is nil in monitor mode.
	Kalshi     *kalshi.Client
	Polymarket *polymarket.Client

	// Stores (nil when the mode does not need persistence).
	Opportunities domain.OpportunityStore
	Decisions     domain.DecisionStore

	// Caches
	ListingCache domain.ListingCache
	Cooldown     domain.PairCooldown

	// Blob storage (nil outside full mode).
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Advisory capability; nil disables the timing and sentiment agents.
	Advisor domain.Advisor

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist opportunities and
// decisions.
func needsPostgres(mode string) bool {
	switch mode {
	case "scan", "full":
		return true
	default:
		return false
	}
}

// needsKalshi returns true for modes that hit the Kalshi REST API.
func needsKalshi(mode string) bool {
	return needsPostgres(mode)
}

// needsS3 returns true for modes that archive to object storage.
func needsS3(mode string) bool {
	return mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue clients ---
	deps.Polymarket = polymarket.NewClient(cfg.Polymarket.GammaHost, logger)

	if needsKalshi(cfg.Mode) {
		kc := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, logger)
		keyBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: read kalshi RSA key %s: %w", cfg.Kalshi.RsaPrivateKeyPath, err)
		}
		if err := kc.SetRSAPrivateKey(keyBytes); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: parse kalshi RSA key: %w", err)
		}
		deps.Kalshi = kc
	}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Opportunities = postgres.NewOpportunityStore(pool)
		deps.Decisions = postgres.NewDecisionStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.ListingCache = redis.NewListingCache(redisClient)
	deps.Cooldown = redis.NewPairCooldown(redisClient)

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		if deps.Decisions != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Decisions, logger)
		}
	}

	// --- Advisory capability ---
	if cfg.Advisory.BaseURL != "" {
		deps.Advisor = advisory.NewClient(cfg.Advisory.BaseURL, cfg.Advisory.ApiKey)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
