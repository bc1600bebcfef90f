package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidateInMonitorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate in monitor mode: %v", err)
	}
}

func TestDefaultsRequireKalshiCredsInFullMode(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing kalshi credentials")
	}
	if !strings.Contains(err.Error(), "kalshi: api_key") {
		t.Errorf("error should mention kalshi api_key, got: %v", err)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"
log_level = "debug"

[scanner]
scan_interval = "30s"
position_size = 10.0
min_profit_threshold = 0.02

[matcher]
match_confidence_threshold = 0.7

[matcher.market_map]
"FED-MAR" = "0xfed"

[sizing]
bankroll = 5000.0
max_kelly_fraction = 0.1

[risk]
starting_equity = 5000.0
max_consecutive_losses = 3

[council]
approval_threshold = 0.75
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Errorf("Mode = %q, want monitor", cfg.Mode)
	}
	if cfg.Scanner.ScanInterval.Duration != 30*time.Second {
		t.Errorf("ScanInterval = %v, want 30s", cfg.Scanner.ScanInterval.Duration)
	}
	if cfg.Scanner.PositionSize != 10.0 {
		t.Errorf("PositionSize = %v, want 10", cfg.Scanner.PositionSize)
	}
	if cfg.Matcher.ConfidenceThreshold != 0.7 {
		t.Errorf("ConfidenceThreshold = %v, want 0.7", cfg.Matcher.ConfidenceThreshold)
	}
	if got := cfg.Matcher.MarketMap["FED-MAR"]; got != "0xfed" {
		t.Errorf("MarketMap[FED-MAR] = %q, want 0xfed", got)
	}
	if cfg.Sizing.Bankroll != 5000.0 {
		t.Errorf("Bankroll = %v, want 5000", cfg.Sizing.Bankroll)
	}
	if cfg.Council.ApprovalThreshold != 0.75 {
		t.Errorf("ApprovalThreshold = %v, want 0.75", cfg.Council.ApprovalThreshold)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Scanner.EvalWorkers != 4 {
		t.Errorf("EvalWorkers = %d, want default 4", cfg.Scanner.EvalWorkers)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default localhost:6379", cfg.Redis.Addr)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"

[scanner]
position_size = 10.0
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CROSSBOT_POSITION_SIZE", "25")
	t.Setenv("CROSSBOT_SCAN_INTERVAL", "2m")
	t.Setenv("CROSSBOT_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CROSSBOT_NOTIFY_EVENTS", "arb_approved, breaker_halted ,breaker_reset")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scanner.PositionSize != 25 {
		t.Errorf("PositionSize = %v, want env override 25", cfg.Scanner.PositionSize)
	}
	if cfg.Scanner.ScanInterval.Duration != 2*time.Minute {
		t.Errorf("ScanInterval = %v, want 2m", cfg.Scanner.ScanInterval.Duration)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q, want redis.internal:6380", cfg.Redis.Addr)
	}
	want := []string{"arb_approved", "breaker_halted", "breaker_reset"}
	if len(cfg.Notify.Events) != len(want) {
		t.Fatalf("Notify.Events = %v, want %v", cfg.Notify.Events, want)
	}
	for i, e := range want {
		if cfg.Notify.Events[i] != e {
			t.Errorf("Notify.Events[%d] = %q, want %q", i, cfg.Notify.Events[i], e)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "yolo" }, "unknown mode"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"zero scan interval", func(c *Config) { c.Scanner.ScanInterval.Duration = 0 }, "scan_interval"},
		{"negative position size", func(c *Config) { c.Scanner.PositionSize = -1 }, "position_size"},
		{"confidence above one", func(c *Config) { c.Matcher.ConfidenceThreshold = 1.5 }, "match_confidence_threshold"},
		{"kelly fraction zero", func(c *Config) { c.Sizing.MaxKellyFraction = 0 }, "max_kelly_fraction"},
		{"drawdown above one", func(c *Config) { c.Risk.MaxDrawdownPct = 1.2 }, "max_drawdown_pct"},
		{"zero weights", func(c *Config) {
			c.Council.RiskWeight = 0
			c.Council.ValueWeight = 0
			c.Council.TimingWeight = 0
			c.Council.SentimentWeight = 0
		}, "weights"},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis: addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Mode = "monitor"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %v should contain %q", err, tt.want)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := duration{90 * time.Second}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back duration
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back.Duration != d.Duration {
		t.Errorf("round trip = %v, want %v", back.Duration, d.Duration)
	}
}
