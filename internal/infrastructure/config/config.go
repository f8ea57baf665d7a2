package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"xfeed/internal/domain"
)

// 环境变量覆盖（.env 可选）
const (
	EnvRedisPassword = "XFEED_REDIS_PASSWORD"
	EnvPostgresDSN   = "XFEED_POSTGRES_DSN"
	EnvLogLevel      = "XFEED_LOG_LEVEL"
)

type Config struct {
	App struct {
		LogLevel      string `toml:"log_level"`
		PrintEveryMin int    `toml:"print_every_min"`
		Color         bool   `toml:"color"`
	} `toml:"app"`

	Feed struct {
		Source             string `toml:"source"`
		Instrument         string `toml:"instrument"`
		DefaultGranularity string `toml:"default_granularity"`
		HistoryLimit       int    `toml:"history_limit"`
		ThrottleMs         int    `toml:"throttle_ms"`
		ReconnectDelayMs   int    `toml:"reconnect_delay_ms"`
	} `toml:"feed"`

	Exchange struct {
		Binance struct {
			RestURL string `toml:"rest_url"`
			WsURL   string `toml:"ws_url"`
		} `toml:"binance"`
		Bybit struct {
			RestURL string `toml:"rest_url"`
			WsURL   string `toml:"ws_url"`
		} `toml:"bybit"`
	} `toml:"exchange"`

	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`

	Redis struct {
		Enabled     bool   `toml:"enabled"`
		Addr        string `toml:"addr"`
		Password    string `toml:"password"`
		DB          int    `toml:"db"`
		Prefix      string `toml:"prefix"`
		TTLSeconds  int    `toml:"ttl_seconds"`
		ViewChannel string `toml:"view_channel"`
	} `toml:"redis"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvRedisPassword); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.App.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.LogLevel) == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.PrintEveryMin <= 0 {
		cfg.App.PrintEveryMin = 5
	}
	if strings.TrimSpace(cfg.Feed.Source) == "" {
		cfg.Feed.Source = "BINANCE"
	}
	if strings.TrimSpace(cfg.Feed.Instrument) == "" {
		cfg.Feed.Instrument = domain.DefaultInstrument
	}
	if strings.TrimSpace(cfg.Feed.DefaultGranularity) == "" {
		cfg.Feed.DefaultGranularity = string(domain.DefaultGranularity)
	}
	if cfg.Feed.HistoryLimit <= 0 {
		cfg.Feed.HistoryLimit = domain.DefaultCapacity
	}
	if cfg.Feed.ThrottleMs <= 0 {
		cfg.Feed.ThrottleMs = 500
	}
	if cfg.Feed.ReconnectDelayMs <= 0 {
		cfg.Feed.ReconnectDelayMs = 3000
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Redis.Prefix) == "" {
		cfg.Redis.Prefix = "xfeed"
	}
	if strings.TrimSpace(cfg.Redis.ViewChannel) == "" {
		cfg.Redis.ViewChannel = cfg.Redis.Prefix + ":view"
	}
	if strings.TrimSpace(cfg.SQLite.Path) == "" {
		cfg.SQLite.Path = "data/xfeed.db"
	}
}

func validate(cfg *Config) error {
	cfg.Feed.Source = strings.ToUpper(strings.TrimSpace(cfg.Feed.Source))
	cfg.Feed.Instrument = domain.NormalizeInstrument(cfg.Feed.Instrument)
	if cfg.Feed.Instrument == "" {
		return errors.New("feed.instrument is empty")
	}

	g, err := domain.ParseGranularity(cfg.Feed.DefaultGranularity)
	if err != nil {
		return fmt.Errorf("feed.default_granularity: %w", err)
	}
	cfg.Feed.DefaultGranularity = string(g)

	if cfg.Feed.HistoryLimit > 1000 {
		return errors.New("feed.history_limit must be <= 1000")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	return nil
}

// Granularity 已校验过的默认粒度
func (c *Config) Granularity() domain.Granularity {
	return domain.Granularity(c.Feed.DefaultGranularity)
}
