package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KALSHIBOT_* environment variable overrides, and
// returns the final Config. A missing config file is not an error; the bot can
// run entirely from defaults plus environment variables. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KALSHIBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Discord ──
	setStr(&cfg.Discord.Token, "KALSHIBOT_DISCORD_TOKEN")
	setStr(&cfg.Discord.Token, "DISCORD_TOKEN") // compatibility alias
	setStringSlice(&cfg.Discord.GuildIDs, "KALSHIBOT_DISCORD_GUILD_IDS")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.ProxyBase, "KALSHIBOT_KALSHI_PROXY_BASE")
	setStr(&cfg.Kalshi.ProxyBase, "PROXY_BASE") // compatibility alias
	setStringSlice(&cfg.Kalshi.Bases, "KALSHIBOT_KALSHI_BASES")
	setDuration(&cfg.Kalshi.Timeout, "KALSHIBOT_KALSHI_TIMEOUT")

	// ── Storage ──
	setStr(&cfg.Storage.Dir, "KALSHIBOT_STORAGE_DIR")

	// ── History ──
	setDuration(&cfg.History.Retention, "KALSHIBOT_HISTORY_RETENTION")
	setInt(&cfg.History.MaxSamples, "KALSHIBOT_HISTORY_MAX_SAMPLES")

	// ── Alert ──
	setDuration(&cfg.Alert.Interval, "KALSHIBOT_ALERT_INTERVAL")
	setDuration(&cfg.Alert.Backoff, "KALSHIBOT_ALERT_BACKOFF")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "KALSHIBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KALSHIBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KALSHIBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KALSHIBOT_REDIS_POOL_SIZE")
	setDuration(&cfg.Redis.CacheTTL, "KALSHIBOT_REDIS_CACHE_TTL")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, "KALSHIBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.TelegramToken, "KALSHIBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KALSHIBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "KALSHIBOT_NOTIFY_EVENTS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "KALSHIBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "KALSHIBOT_SERVER_PORT")
	// Hosting platforms inject PORT; its presence also enables the server.
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
			cfg.Server.Enabled = true
		}
	}

	// ── Top-level ──
	setStr(&cfg.LogLevel, "KALSHIBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
