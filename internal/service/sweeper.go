package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
	"github.com/kwatch/kalshibot/internal/notify"
)

// AlertSender posts an alert message into a guild's alert channel. It returns
// domain.ErrNoChannel when the guild has no viable channel; the sweep skips
// such guilds silently.
type AlertSender interface {
	SendAlert(ctx context.Context, guildID, message string) error
}

// Sweeper is the periodic alert evaluator. Every interval it walks all
// guilds' watchlists in insertion order, refreshes each watched market's
// snapshot (recording history regardless of whether a threshold is set), and
// fires one-shot alerts when a resolved YES price crosses at or below the
// armed threshold. A crossing clears the threshold so the same event does not
// re-notify until the watch is re-armed.
type Sweeper struct {
	watches  domain.WatchlistStore
	market   *MarketService
	sender   AlertSender
	notifier *notify.Notifier
	interval time.Duration
	backoff  time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. notifier may be nil when no operator channels
// are configured.
func NewSweeper(
	watches domain.WatchlistStore,
	market *MarketService,
	sender AlertSender,
	notifier *notify.Notifier,
	interval, backoff time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Sweeper{
		watches:  watches,
		market:   market,
		sender:   sender,
		notifier: notifier,
		interval: interval,
		backoff:  backoff,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Run loops until the context is cancelled. The cadence is sleep-after-sweep,
// so a slow sweep stretches the effective period rather than overlapping the
// next one. A failed sweep logs, backs off briefly, and continues; the loop
// never dies from a single instrument's failure.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		if err := s.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.ErrorContext(ctx, "sweep failed",
				slog.String("error", err.Error()),
			)
			if s.notifier != nil {
				s.notifier.SweepError(ctx, err)
			}
			if !sleep(ctx, s.backoff) {
				return ctx.Err()
			}
			continue
		}
		if !sleep(ctx, s.interval) {
			return ctx.Err()
		}
	}
}

// Sweep performs one full pass over every guild's watchlist. It is exported so
// tests can drive the state machine one sweep at a time. Panics inside a sweep
// are recovered and reported as errors.
func (s *Sweeper) Sweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()

	for _, guildID := range s.watches.Guilds() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sweepGuild(ctx, guildID)
	}
	return nil
}

// sweepGuild processes one guild's watches in insertion order.
func (s *Sweeper) sweepGuild(ctx context.Context, guildID string) {
	for _, w := range s.watches.List(guildID) {
		snap, err := s.market.Snapshot(ctx, w.Ticker)
		if err != nil {
			// Degrade this ticker to "no data" for this sweep only.
			s.logger.WarnContext(ctx, "snapshot failed during sweep",
				slog.String("guild_id", guildID),
				slog.String("ticker", w.Ticker),
				slog.String("error", err.Error()),
			)
			continue
		}

		if !w.Armed() || !snap.HasPrice() {
			continue
		}

		price := *snap.YesPrice
		threshold := *w.Threshold
		if price > threshold {
			continue
		}

		msg := fmt.Sprintf("🔔 Alert: `%s` YES is %.0f¢ (≤ %.0f¢)",
			w.Ticker, price*100, threshold*100)
		if err := s.sender.SendAlert(ctx, guildID, msg); err != nil {
			if errors.Is(err, domain.ErrNoChannel) {
				// Guild has nowhere to post; leave the watch armed.
				continue
			}
			s.logger.WarnContext(ctx, "alert delivery failed",
				slog.String("guild_id", guildID),
				slog.String("ticker", w.Ticker),
				slog.String("error", err.Error()),
			)
			continue
		}

		// One-shot: disarm so the same crossing does not spam the channel.
		s.watches.Set(guildID, w.Ticker, nil)
		s.logger.InfoContext(ctx, "alert fired",
			slog.String("guild_id", guildID),
			slog.String("ticker", w.Ticker),
			slog.Float64("price", price),
			slog.Float64("threshold", threshold),
		)
		if s.notifier != nil {
			s.notifier.AlertFired(ctx, guildID, w.Ticker, price, threshold)
		}
	}
}

// sleep waits for d or until the context is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
