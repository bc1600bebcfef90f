// Package config defines the top-level configuration for the crossbot
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CROSSBOT_* environment
// variables.
type Config struct {
	Scanner    ScannerConfig    `toml:"scanner"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Sizing     SizingConfig     `toml:"sizing"`
	Risk       RiskConfig       `toml:"risk"`
	Council    CouncilConfig    `toml:"council"`
	Advisory   AdvisoryConfig   `toml:"advisory"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ScannerConfig holds scan loop and evaluation parameters.
type ScannerConfig struct {
	ScanInterval       duration `toml:"scan_interval"`
	FetchTimeout       duration `toml:"fetch_timeout"`
	EvalWorkers        int      `toml:"eval_workers"`
	PositionSize       float64  `toml:"position_size"`
	MinProfitThreshold float64  `toml:"min_profit_threshold"`
	TrailingVolume     float64  `toml:"trailing_volume"`
	CooldownWindow     duration `toml:"cooldown_window"`
}

// MatcherConfig holds cross-venue matching parameters. MarketMap pins Kalshi
// tickers to Polymarket market IDs, bypassing fuzzy scoring.
type MatcherConfig struct {
	ConfidenceThreshold float64           `toml:"match_confidence_threshold"`
	MarketMap           map[string]string `toml:"market_map"`
}

// SizingConfig holds Kelly position sizing parameters.
type SizingConfig struct {
	Bankroll         float64 `toml:"bankroll"`
	MaxKellyFraction float64 `toml:"max_kelly_fraction"`
}

// RiskConfig holds circuit breaker limits. A zero limit disables that check.
type RiskConfig struct {
	StartingEquity       float64 `toml:"starting_equity"`
	MaxDrawdownPct       float64 `toml:"max_drawdown_pct"`
	MaxDailyLoss         float64 `toml:"max_daily_loss"`
	MaxConsecutiveLosses int     `toml:"max_consecutive_losses"`
}

// CouncilConfig holds decision council parameters.
type CouncilConfig struct {
	ApprovalThreshold     float64  `toml:"approval_threshold"`
	RiskWeight            float64  `toml:"risk_weight"`
	ValueWeight           float64  `toml:"value_weight"`
	TimingWeight          float64  `toml:"timing_weight"`
	SentimentWeight       float64  `toml:"sentiment_weight"`
	VetoConsecutiveLosses int      `toml:"veto_consecutive_losses"`
	AdvisoryTimeout       duration `toml:"advisory_timeout"`
}

// AdvisoryConfig holds the external advisory service endpoint. When BaseURL
// is empty the timing and sentiment agents always vote neutral.
type AdvisoryConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// KalshiConfig holds Kalshi exchange API credentials.
type KalshiConfig struct {
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	Bucket               string `toml:"bucket"`
	AccessKey            string `toml:"access_key"`
	SecretKey            string `toml:"secret_key"`
	UseSSL               bool   `toml:"use_ssl"`
	ForcePathStyle       bool   `toml:"force_path_style"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			ScanInterval:       duration{60 * time.Second},
			FetchTimeout:       duration{30 * time.Second},
			EvalWorkers:        4,
			PositionSize:       5.0,
			MinProfitThreshold: 0.01,
			TrailingVolume:     0,
			CooldownWindow:     duration{15 * time.Minute},
		},
		Matcher: MatcherConfig{
			ConfidenceThreshold: 0.55,
			MarketMap:           map[string]string{},
		},
		Sizing: SizingConfig{
			Bankroll:         1000.0,
			MaxKellyFraction: 0.25,
		},
		Risk: RiskConfig{
			StartingEquity:       1000.0,
			MaxDrawdownPct:       0.20,
			MaxDailyLoss:         100.0,
			MaxConsecutiveLosses: 5,
		},
		Council: CouncilConfig{
			ApprovalThreshold:     0.60,
			RiskWeight:            1.5,
			ValueWeight:           2.0,
			TimingWeight:          1.0,
			SentimentWeight:       1.2,
			VetoConsecutiveLosses: 2,
			AdvisoryTimeout:       duration{5 * time.Second},
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "crossbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:             "http://localhost:9000",
			Region:               "us-east-1",
			Bucket:               "crossbot-data",
			UseSSL:               false,
			ForcePathStyle:       true,
			ArchiveRetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_approved", "breaker_halted"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scanner
	if c.Scanner.ScanInterval.Duration <= 0 {
		errs = append(errs, "scanner: scan_interval must be > 0")
	}
	if c.Scanner.PositionSize <= 0 {
		errs = append(errs, "scanner: position_size must be > 0")
	}
	if c.Scanner.MinProfitThreshold < 0 {
		errs = append(errs, "scanner: min_profit_threshold must be >= 0")
	}
	if c.Scanner.EvalWorkers < 1 {
		errs = append(errs, "scanner: eval_workers must be >= 1")
	}

	// Matcher
	if c.Matcher.ConfidenceThreshold < 0 || c.Matcher.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("matcher: match_confidence_threshold must be in [0,1], got %v", c.Matcher.ConfidenceThreshold))
	}

	// Sizing
	if c.Sizing.Bankroll <= 0 {
		errs = append(errs, "sizing: bankroll must be > 0")
	}
	if c.Sizing.MaxKellyFraction <= 0 || c.Sizing.MaxKellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("sizing: max_kelly_fraction must be in (0,1], got %v", c.Sizing.MaxKellyFraction))
	}

	// Risk
	if c.Risk.StartingEquity <= 0 {
		errs = append(errs, "risk: starting_equity must be > 0")
	}
	if c.Risk.MaxDrawdownPct < 0 || c.Risk.MaxDrawdownPct > 1 {
		errs = append(errs, fmt.Sprintf("risk: max_drawdown_pct must be in [0,1], got %v", c.Risk.MaxDrawdownPct))
	}
	if c.Risk.MaxDailyLoss < 0 {
		errs = append(errs, "risk: max_daily_loss must be >= 0")
	}
	if c.Risk.MaxConsecutiveLosses < 0 {
		errs = append(errs, "risk: max_consecutive_losses must be >= 0")
	}

	// Council
	if c.Council.ApprovalThreshold < 0 || c.Council.ApprovalThreshold > 1 {
		errs = append(errs, fmt.Sprintf("council: approval_threshold must be in [0,1], got %v", c.Council.ApprovalThreshold))
	}
	totalWeight := c.Council.RiskWeight + c.Council.ValueWeight + c.Council.TimingWeight + c.Council.SentimentWeight
	if totalWeight <= 0 {
		errs = append(errs, "council: agent weights must sum to > 0")
	}
	if c.Council.VetoConsecutiveLosses < 1 {
		errs = append(errs, "council: veto_consecutive_losses must be >= 1")
	}

	// Kalshi
	mode := strings.ToLower(c.Mode)
	if mode == "scan" || mode == "full" {
		if c.Kalshi.ApiKey == "" {
			errs = append(errs, "kalshi: api_key is required for mode "+c.Mode)
		}
		if c.Kalshi.RsaPrivateKeyPath == "" {
			errs = append(errs, "kalshi: rsa_private_key_path is required for mode "+c.Mode)
		}
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
		if c.Polymarket.GammaHost == "" {
			errs = append(errs, "polymarket: gamma_host must not be empty")
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}
	if c.S3.ArchiveRetentionDays < 1 {
		errs = append(errs, "s3: archive_retention_days must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
