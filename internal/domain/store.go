package domain

import (
	"context"
	"time"
)

// MarketData resolves live market state from the upstream data API.
type MarketData interface {
	// Snapshot returns the current price/volume snapshot for a ticker. An
	// unreachable API returns an error; a reachable API with no usable price
	// returns a snapshot with all price fields nil and a nil error.
	Snapshot(ctx context.Context, ticker string) (Snapshot, error)
	// ListOpen returns up to limit open markets, following pagination.
	ListOpen(ctx context.Context, limit int) ([]MarketInfo, error)
}

// WatchlistStore persists per-guild market watches. Implementations keep
// entries in insertion order within each guild.
type WatchlistStore interface {
	// Set upserts a watch. A nil threshold keeps the watch but disarms it.
	Set(guildID, ticker string, threshold *float64)
	// Remove deletes a watch and reports whether it existed.
	Remove(guildID, ticker string) bool
	// List returns the guild's watches in insertion order.
	List(guildID string) []Watch
	// Guilds returns every guild with at least one watch, in a stable order.
	Guilds() []string
}

// HistoryStore persists per-ticker price tapes and answers delta queries.
type HistoryStore interface {
	// Record appends a price observation. A nil price is a no-op.
	Record(ticker string, price *float64, now time.Time)
	// DeltaSince computes the price change over the given lookback window.
	// It returns ErrNoData when nothing has been recorded for the ticker.
	DeltaSince(ticker string, minutes int, now time.Time) (Delta, error)
}

// SnapshotCache stores the most recent snapshot per ticker with a short TTL so
// command handlers and the alert sweep can share fresh quotes.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap Snapshot) error
	// GetSnapshot returns ErrNotFound when no fresh snapshot is cached.
	GetSnapshot(ctx context.Context, ticker string) (Snapshot, error)
}
