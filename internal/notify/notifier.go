// Package notify mirrors bot events to operator-facing channels (a Discord
// webhook, Telegram) so whoever runs the bot sees fired alerts and sweep
// errors without watching the guilds themselves. Delivery is best-effort;
// failures are logged and never block the sweep.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Event types recognized by the filter.
const (
	EventAlert = "alert"
	EventError = "error"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders, filtered by event
// type. With no configured event filter, everything passes.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// AlertFired mirrors a threshold alert. Each alert carries a generated event
// ID so operator channels and logs can be correlated.
func (n *Notifier) AlertFired(ctx context.Context, guildID, ticker string, price, threshold float64) {
	if !n.allowed(EventAlert) {
		return
	}
	id := uuid.NewString()
	title := fmt.Sprintf("Alert: %s", ticker)
	msg := fmt.Sprintf("YES hit %.0f¢ (threshold %.0f¢) in guild %s\nevent_id: %s",
		price*100, threshold*100, guildID, id)
	n.logger.InfoContext(ctx, "mirroring alert",
		slog.String("event_id", id),
		slog.String("ticker", ticker),
		slog.String("guild_id", guildID),
	)
	n.dispatch(ctx, title, msg)
}

// SweepError mirrors a sweep-level failure.
func (n *Notifier) SweepError(ctx context.Context, err error) {
	if !n.allowed(EventError) {
		return
	}
	n.dispatch(ctx, "Sweep error", err.Error())
}

// allowed reports whether the event type passes the configured filter.
func (n *Notifier) allowed(event string) bool {
	if len(n.events) == 0 {
		return true
	}
	return n.events[event]
}

// dispatch fans the message out to every sender. A failing sender does not
// prevent delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}
