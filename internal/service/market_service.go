// Package service contains the orchestration layer between the Discord
// command surface and the market-data client, history, and watchlist stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
)

// MarketService resolves snapshots and listings for the command surface and
// the alert sweep. Every resolved snapshot is recorded to the price history as
// a side effect, so delta queries improve the more the bot is used.
type MarketService struct {
	data    domain.MarketData
	history domain.HistoryStore
	cache   domain.SnapshotCache // nil when Redis is not configured
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	data domain.MarketData,
	history domain.HistoryStore,
	cache domain.SnapshotCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		data:    data,
		history: history,
		cache:   cache,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// Snapshot returns the current snapshot for a ticker, consulting the cache
// first, and records any resolved price to the history tape.
func (s *MarketService) Snapshot(ctx context.Context, ticker string) (domain.Snapshot, error) {
	ticker = strings.ToUpper(ticker)

	if s.cache != nil {
		if snap, err := s.cache.GetSnapshot(ctx, ticker); err == nil {
			return snap, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot cache read failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
	}

	snap, err := s.data.Snapshot(ctx, ticker)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("service: snapshot %s: %w", ticker, err)
	}

	s.history.Record(ticker, snap.YesPrice, snap.Time)

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
	}

	return snap, nil
}

// Report bundles a snapshot with its delta over the requested lookback. A
// history with no recorded samples yields a zero Delta and hasDelta=false
// rather than an error; the command surface renders that as "no captured
// quotes yet".
func (s *MarketService) Report(ctx context.Context, ticker string, minutes int) (domain.Snapshot, domain.Delta, bool, error) {
	ticker = strings.ToUpper(ticker)

	snap, err := s.Snapshot(ctx, ticker)
	if err != nil {
		return domain.Snapshot{}, domain.Delta{}, false, err
	}

	delta, err := s.history.DeltaSince(ticker, minutes, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return snap, domain.Delta{}, false, nil
		}
		return snap, domain.Delta{}, false, fmt.Errorf("service: delta %s: %w", ticker, err)
	}

	return snap, delta, true, nil
}

// Search returns up to max open markets whose titles contain the query,
// case-insensitively, in listing order.
func (s *MarketService) Search(ctx context.Context, query string, max int) ([]domain.MarketInfo, error) {
	markets, err := s.data.ListOpen(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("service: search: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var hits []domain.MarketInfo
	for _, m := range markets {
		if strings.Contains(strings.ToLower(m.Title), q) {
			hits = append(hits, m)
			if len(hits) >= max {
				break
			}
		}
	}
	return hits, nil
}

// Hot returns up to max open markets ranked by rough activity: volume plus the
// yes/no quote divergence scaled to cents.
func (s *MarketService) Hot(ctx context.Context, max int) ([]domain.MarketInfo, error) {
	markets, err := s.data.ListOpen(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("service: hot: %w", err)
	}

	sort.SliceStable(markets, func(i, j int) bool {
		return score(markets[i]) > score(markets[j])
	})

	if len(markets) > max {
		markets = markets[:max]
	}
	return markets, nil
}

// score ranks a market by volume plus its quote divergence in cents.
func score(m domain.MarketInfo) float64 {
	return float64(m.Volume) + m.Spread*100
}
