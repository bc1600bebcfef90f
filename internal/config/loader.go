package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from the TOML file at path, layered on top of
// Defaults(), and then applies CROSSBOT_* environment variable overrides.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	// Best effort; missing .env is not an error.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSBOT_* environment variables and
// applies them over the decoded configuration. Environment always wins over
// the file, which keeps credentials out of TOML in deployments.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "CROSSBOT_MODE")
	setStr(&cfg.LogLevel, "CROSSBOT_LOG_LEVEL")

	setDuration(&cfg.Scanner.ScanInterval, "CROSSBOT_SCAN_INTERVAL")
	setDuration(&cfg.Scanner.FetchTimeout, "CROSSBOT_FETCH_TIMEOUT")
	setInt(&cfg.Scanner.EvalWorkers, "CROSSBOT_EVAL_WORKERS")
	setFloat64(&cfg.Scanner.PositionSize, "CROSSBOT_POSITION_SIZE")
	setFloat64(&cfg.Scanner.MinProfitThreshold, "CROSSBOT_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Scanner.TrailingVolume, "CROSSBOT_TRAILING_VOLUME")
	setDuration(&cfg.Scanner.CooldownWindow, "CROSSBOT_COOLDOWN_WINDOW")

	setFloat64(&cfg.Matcher.ConfidenceThreshold, "CROSSBOT_MATCH_CONFIDENCE_THRESHOLD")

	setFloat64(&cfg.Sizing.Bankroll, "CROSSBOT_BANKROLL")
	setFloat64(&cfg.Sizing.MaxKellyFraction, "CROSSBOT_MAX_KELLY_FRACTION")

	setFloat64(&cfg.Risk.StartingEquity, "CROSSBOT_STARTING_EQUITY")
	setFloat64(&cfg.Risk.MaxDrawdownPct, "CROSSBOT_MAX_DRAWDOWN_PCT")
	setFloat64(&cfg.Risk.MaxDailyLoss, "CROSSBOT_MAX_DAILY_LOSS")
	setInt(&cfg.Risk.MaxConsecutiveLosses, "CROSSBOT_MAX_CONSECUTIVE_LOSSES")

	setFloat64(&cfg.Council.ApprovalThreshold, "CROSSBOT_APPROVAL_THRESHOLD")
	setInt(&cfg.Council.VetoConsecutiveLosses, "CROSSBOT_VETO_CONSECUTIVE_LOSSES")
	setDuration(&cfg.Council.AdvisoryTimeout, "CROSSBOT_ADVISORY_TIMEOUT")

	setStr(&cfg.Advisory.BaseURL, "CROSSBOT_ADVISORY_BASE_URL")
	setStr(&cfg.Advisory.ApiKey, "CROSSBOT_ADVISORY_API_KEY")

	setStr(&cfg.Kalshi.ApiKey, "CROSSBOT_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "CROSSBOT_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "CROSSBOT_KALSHI_BASE_URL")

	setStr(&cfg.Polymarket.GammaHost, "CROSSBOT_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "CROSSBOT_POLYMARKET_WS_HOST")

	setStr(&cfg.Postgres.DSN, "CROSSBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSBOT_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "CROSSBOT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "CROSSBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSBOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "CROSSBOT_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "CROSSBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSBOT_S3_USE_SSL")

	setStr(&cfg.Notify.TelegramToken, "CROSSBOT_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSBOT_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSBOT_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSBOT_NOTIFY_EVENTS")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
