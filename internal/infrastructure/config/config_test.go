package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xfeed/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ``))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Instrument != "BTCUSDT" || cfg.Granularity() != domain.GranularityMinute {
		t.Errorf("unexpected feed defaults: %+v", cfg.Feed)
	}
	if cfg.Feed.HistoryLimit != 100 || cfg.Feed.ThrottleMs != 500 || cfg.Feed.ReconnectDelayMs != 3000 {
		t.Errorf("unexpected timing defaults: %+v", cfg.Feed)
	}
	if cfg.Feed.Source != "BINANCE" || cfg.App.PrintEveryMin != 5 {
		t.Errorf("unexpected app defaults: source=%s print=%d", cfg.Feed.Source, cfg.App.PrintEveryMin)
	}
	if cfg.Redis.ViewChannel != "xfeed:view" {
		t.Errorf("unexpected view channel %s", cfg.Redis.ViewChannel)
	}
}

func TestLoadNormalizes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[feed]
source = "binance"
instrument = "eth/usdt"
default_granularity = " 1H "
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Instrument != "ETHUSDT" || cfg.Feed.Source != "BINANCE" || cfg.Granularity() != domain.GranularityHour {
		t.Errorf("unexpected normalized feed: %+v", cfg.Feed)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad granularity", "[feed]\ndefault_granularity = \"5m\"\n", "default_granularity"},
		{"history too large", "[feed]\nhistory_limit = 5000\n", "history_limit"},
		{"redis without addr", "[redis]\nenabled = true\n", "redis.addr"},
		{"postgres without dsn", "[postgres]\nenabled = true\n", "postgres.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://u:p@localhost/xfeed")
	t.Setenv(EnvRedisPassword, "secret")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(writeConfig(t, "[postgres]\nenabled = true\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://u:p@localhost/xfeed" || cfg.Redis.Password != "secret" || cfg.App.LogLevel != "debug" {
		t.Errorf("env overrides not applied: dsn=%q pw=%q level=%q", cfg.Postgres.DSN, cfg.Redis.Password, cfg.App.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
