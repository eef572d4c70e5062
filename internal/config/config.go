// Package config defines the top-level configuration for kalshibot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KALSHIBOT_* environment variables.
type Config struct {
	Discord  DiscordConfig `toml:"discord"`
	Kalshi   KalshiConfig  `toml:"kalshi"`
	Storage  StorageConfig `toml:"storage"`
	History  HistoryConfig `toml:"history"`
	Alert    AlertConfig   `toml:"alert"`
	Redis    RedisConfig   `toml:"redis"`
	Notify   NotifyConfig  `toml:"notify"`
	Server   ServerConfig  `toml:"server"`
	LogLevel string        `toml:"log_level"`
}

// DiscordConfig holds the bot credential and optional guild scoping.
type DiscordConfig struct {
	Token string `toml:"token"`
	// GuildIDs restricts slash-command registration to specific guilds. Empty
	// means global registration (slower to propagate, available everywhere).
	GuildIDs []string `toml:"guild_ids"`
}

// KalshiConfig holds the market-data API endpoints and request parameters.
type KalshiConfig struct {
	// ProxyBase is an optional caller-supplied base (e.g. a CF worker) tried
	// before the public bases.
	ProxyBase string   `toml:"proxy_base"`
	Bases     []string `toml:"bases"`
	Timeout   duration `toml:"timeout"`
}

// StorageConfig holds the on-disk state location.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// HistoryConfig holds price-tape retention parameters.
type HistoryConfig struct {
	Retention  duration `toml:"retention"`
	MaxSamples int      `toml:"max_samples"`
}

// AlertConfig holds the periodic sweep parameters.
type AlertConfig struct {
	Interval duration `toml:"interval"`
	Backoff  duration `toml:"backoff"`
}

// RedisConfig holds connection parameters for the optional snapshot cache.
// An empty Addr disables Redis entirely.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	PoolSize int      `toml:"pool_size"`
	CacheTTL duration `toml:"cache_ttl"`
}

// NotifyConfig holds operator notification channel credentials.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	Events            []string `toml:"events"`
}

// ServerConfig holds the liveness HTTP endpoint parameters. Port 0 with
// Enabled=false skips the server; hosting platforms usually inject PORT.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "6h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "6h".
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
		Kalshi: KalshiConfig{
			Bases: []string{
				"https://api.kalshi.com/trade-api/v2",
				"https://api.elections.kalshi.com/trade-api/v2",
			},
			Timeout: duration{20 * time.Second},
		},
		Storage: StorageConfig{
			Dir: "data",
		},
		History: HistoryConfig{
			Retention:  duration{6 * time.Hour},
			MaxSamples: 500,
		},
		Alert: AlertConfig{
			Interval: duration{60 * time.Second},
			Backoff:  duration{5 * time.Second},
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: duration{30 * time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"alert", "error"},
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, "discord: token is required (set discord.token or KALSHIBOT_DISCORD_TOKEN)")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Kalshi.Bases) == 0 && c.Kalshi.ProxyBase == "" {
		errs = append(errs, "kalshi: at least one API base must be configured")
	}
	if c.Kalshi.Timeout.Duration <= 0 {
		errs = append(errs, "kalshi: timeout must be positive")
	}

	if c.Storage.Dir == "" {
		errs = append(errs, "storage: dir must not be empty")
	}

	if c.History.Retention.Duration <= 0 {
		errs = append(errs, "history: retention must be positive")
	}
	if c.History.MaxSamples < 1 {
		errs = append(errs, "history: max_samples must be >= 1")
	}

	if c.Alert.Interval.Duration <= 0 {
		errs = append(errs, "alert: interval must be positive")
	}
	if c.Alert.Backoff.Duration <= 0 {
		errs = append(errs, "alert: backoff must be positive")
	}

	if c.Redis.Addr != "" {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.CacheTTL.Duration <= 0 {
			errs = append(errs, "redis: cache_ttl must be positive")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
