package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kwatch/kalshibot/internal/cache/redis"
	"github.com/kwatch/kalshibot/internal/config"
	"github.com/kwatch/kalshibot/internal/domain"
	"github.com/kwatch/kalshibot/internal/notify"
	"github.com/kwatch/kalshibot/internal/platform/kalshi"
	"github.com/kwatch/kalshibot/internal/service"
	"github.com/kwatch/kalshibot/internal/store/file"
)

// Dependencies bundles everything the application goroutines need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Watches  domain.WatchlistStore
	History  domain.HistoryStore
	Cache    domain.SnapshotCache // nil when Redis is not configured
	Market   *service.MarketService
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Flat-file stores ---
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("wire: create storage dir: %w", err)
	}
	watches := file.NewWatchlist(filepath.Join(cfg.Storage.Dir, "watches.json"), logger)
	history := file.NewHistory(
		filepath.Join(cfg.Storage.Dir, "quotes.json"),
		cfg.History.Retention.Duration,
		cfg.History.MaxSamples,
		logger,
	)

	deps := &Dependencies{
		Watches: watches,
		History: history,
	}

	// --- Redis snapshot cache (optional) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Cache = redis.NewSnapshotCache(redisClient, cfg.Redis.CacheTTL.Duration)
	}

	// --- Market data ---
	client := kalshi.NewClient(
		cfg.Kalshi.ProxyBase,
		cfg.Kalshi.Bases,
		cfg.Kalshi.Timeout.Duration,
		logger,
	)
	deps.Market = service.NewMarketService(client, history, deps.Cache, logger)

	// --- Operator notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.DiscordWebhookURL))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
