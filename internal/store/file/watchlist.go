// Package file implements the domain store interfaces on pretty-printed JSON
// flat files. Every mutation rewrites the whole document synchronously; a
// failed write is logged and the in-memory state stays authoritative for the
// rest of the process lifetime. Files are safe to inspect or hand-edit while
// the process is stopped.
package file

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kwatch/kalshibot/internal/domain"
)

// Watchlist stores per-guild market watches in a single JSON file. Entries are
// kept as ordered arrays (not JSON objects) so insertion order survives a
// restart.
type Watchlist struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	byGuild map[string][]domain.Watch
}

// NewWatchlist loads the watchlist from path. A missing or corrupt file yields
// an empty watchlist rather than an error.
func NewWatchlist(path string, logger *slog.Logger) *Watchlist {
	w := &Watchlist{
		path:    path,
		logger:  logger.With(slog.String("component", "watchlist")),
		byGuild: make(map[string][]domain.Watch),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to read watchlist, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return w
	}
	if err := json.Unmarshal(data, &w.byGuild); err != nil {
		w.logger.Warn("corrupt watchlist file, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		w.byGuild = make(map[string][]domain.Watch)
	}
	return w
}

// Set upserts a watch for the guild. The ticker is uppercased; an existing
// entry keeps its position in the list and only its threshold changes (a nil
// threshold disarms it).
func (w *Watchlist) Set(guildID, ticker string, threshold *float64) {
	ticker = strings.ToUpper(ticker)

	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.byGuild[guildID]
	for i := range entries {
		if entries[i].Ticker == ticker {
			entries[i].Threshold = threshold
			w.save()
			return
		}
	}
	w.byGuild[guildID] = append(entries, domain.Watch{
		Ticker:    ticker,
		Threshold: threshold,
	})
	w.save()
}

// Remove deletes a watch and reports whether it existed.
func (w *Watchlist) Remove(guildID, ticker string) bool {
	ticker = strings.ToUpper(ticker)

	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.byGuild[guildID]
	for i := range entries {
		if entries[i].Ticker == ticker {
			w.byGuild[guildID] = append(entries[:i], entries[i+1:]...)
			if len(w.byGuild[guildID]) == 0 {
				delete(w.byGuild, guildID)
			}
			w.save()
			return true
		}
	}
	return false
}

// List returns the guild's watches in insertion order. The returned slice is a
// copy and safe to mutate.
func (w *Watchlist) List(guildID string) []domain.Watch {
	w.mu.Lock()
	defer w.mu.Unlock()

	src := w.byGuild[guildID]
	if len(src) == 0 {
		return nil
	}
	out := make([]domain.Watch, len(src))
	copy(out, src)
	return out
}

// Guilds returns every guild with at least one watch, sorted for a stable
// sweep order.
func (w *Watchlist) Guilds() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.byGuild))
	for g := range w.byGuild {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// save rewrites the whole document. The caller must hold w.mu. Write failures
// are logged, not returned; memory stays authoritative.
func (w *Watchlist) save() {
	data, err := json.MarshalIndent(w.byGuild, "", "  ")
	if err != nil {
		w.logger.Error("failed to encode watchlist", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		w.logger.Error("failed to save watchlist",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface check.
var _ domain.WatchlistStore = (*Watchlist)(nil)
