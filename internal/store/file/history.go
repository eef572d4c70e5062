package file

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
)

// History stores a bounded, time-windowed tape of price observations per
// ticker in a single JSON file, and answers delta-over-window queries.
type History struct {
	path       string
	retention  time.Duration
	maxSamples int
	logger     *slog.Logger

	mu     sync.Mutex
	series map[string][]domain.PricePoint
}

// NewHistory loads the price history from path. Samples older than retention
// are trimmed on every write; maxSamples independently caps each ticker's tape
// (oldest dropped first). A missing or corrupt file yields an empty history.
func NewHistory(path string, retention time.Duration, maxSamples int, logger *slog.Logger) *History {
	h := &History{
		path:       path,
		retention:  retention,
		maxSamples: maxSamples,
		logger:     logger.With(slog.String("component", "history")),
		series:     make(map[string][]domain.PricePoint),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Warn("failed to read history, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return h
	}
	if err := json.Unmarshal(data, &h.series); err != nil {
		h.logger.Warn("corrupt history file, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		h.series = make(map[string][]domain.PricePoint)
	}
	return h
}

// Record appends a price observation for the ticker, trims the tape, and
// persists the store. A nil price is a no-op: only resolved snapshots are
// recorded.
func (h *History) Record(ticker string, price *float64, now time.Time) {
	if price == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tape := append(h.series[ticker], domain.PricePoint{
		TS:    now.Unix(),
		Price: *price,
	})

	// Drop samples that fell out of the retention window, oldest first.
	cutoff := now.Add(-h.retention).Unix()
	i := 0
	for i < len(tape) && tape[i].TS < cutoff {
		i++
	}
	tape = tape[i:]

	// Independent safety cap on tape length.
	if len(tape) > h.maxSamples {
		tape = tape[len(tape)-h.maxSamples:]
	}

	h.series[ticker] = tape
	h.save()
}

// DeltaSince computes the change between the newest sample and the first
// sample at or before now minus the requested lookback. When no sample is old
// enough, the delta falls back to the full recorded span and the result is
// flagged Partial if that span is shorter than requested. An empty tape
// returns domain.ErrNoData.
func (h *History) DeltaSince(ticker string, minutes int, now time.Time) (domain.Delta, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tape := h.series[ticker]
	if len(tape) == 0 {
		return domain.Delta{}, domain.ErrNoData
	}

	cutoff := now.Unix() - int64(minutes)*60
	latest := tape[len(tape)-1]

	// Scan from the most recent sample backward for the first one at or
	// before the cutoff.
	var from domain.PricePoint
	found := false
	for i := len(tape) - 1; i >= 0; i-- {
		if tape[i].TS <= cutoff {
			from = tape[i]
			found = true
			break
		}
	}

	partial := false
	if !found {
		// Nothing old enough: compare the full recorded span and report the
		// actual elapsed time truthfully.
		from = tape[0]
		partial = latest.TS-from.TS < int64(minutes)*60
	}

	elapsed := int((latest.TS - from.TS) / 60)
	if elapsed < 1 {
		elapsed = 1
	}

	return domain.Delta{
		Cents:   roundCents(latest.Price - from.Price),
		From:    roundCents(from.Price),
		To:      roundCents(latest.Price),
		Minutes: elapsed,
		Partial: partial,
	}, nil
}

// roundCents converts a [0,1] price to the nearest integer cent.
func roundCents(price float64) int {
	return int(math.Round(price * 100))
}

// save rewrites the whole document. The caller must hold h.mu. Write failures
// are logged, not returned; memory stays authoritative.
func (h *History) save() {
	data, err := json.MarshalIndent(h.series, "", "  ")
	if err != nil {
		h.logger.Error("failed to encode history", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		h.logger.Error("failed to save history",
			slog.String("path", h.path),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface check.
var _ domain.HistoryStore = (*History)(nil)
