// Package app provides the top-level application lifecycle for kalshibot. It
// wires the stores, cache, market-data client, and notifier together and runs
// the Discord session, the alert sweeper, and the optional liveness server
// under one errgroup.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kwatch/kalshibot/internal/bot"
	"github.com/kwatch/kalshibot/internal/config"
	"github.com/kwatch/kalshibot/internal/server"
	"github.com/kwatch/kalshibot/internal/service"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the goroutines, and blocks until the
// context is cancelled or a subsystem fails fatally.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	discordBot, err := bot.New(
		a.cfg.Discord.Token,
		a.cfg.Discord.GuildIDs,
		deps.Market,
		deps.Watches,
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	sweeper := service.NewSweeper(
		deps.Watches,
		deps.Market,
		discordBot,
		deps.Notifier,
		a.cfg.Alert.Interval.Duration,
		a.cfg.Alert.Backoff.Duration,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return discordBot.Run(ctx)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	if a.cfg.Server.Enabled {
		healthSrv := server.New(a.cfg.Server.Port, a.logger)
		g.Go(func() error {
			return healthSrv.Run(ctx)
		})
	}

	a.logger.InfoContext(ctx, "application started",
		slog.Bool("redis_cache", deps.Cache != nil),
		slog.Bool("health_server", a.cfg.Server.Enabled),
		slog.String("sweep_interval", a.cfg.Alert.Interval.Duration.String()),
	)

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
