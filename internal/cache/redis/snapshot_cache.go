package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kwatch/kalshibot/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache on Redis string keys. Each
// ticker's latest snapshot is stored JSON-encoded at "snap:{ticker}" with a
// short TTL, so a command arriving right after a sweep reuses the sweep's
// quote instead of hitting the API again.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapKey(ticker string) string {
	return "snap:" + ticker
}

// cachedSnapshot is the wire form of a snapshot in Redis.
type cachedSnapshot struct {
	Ticker    string   `json:"ticker"`
	YesPrice  *float64 `json:"yes_price,omitempty"`
	NoPrice   *float64 `json:"no_price,omitempty"`
	LastPrice *float64 `json:"last_price,omitempty"`
	Volume    int64    `json:"volume"`
	Source    string   `json:"source,omitempty"`
	TS        int64    `json:"ts"`
}

// SetSnapshot stores the snapshot under its ticker with the cache TTL.
func (sc *SnapshotCache) SetSnapshot(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(cachedSnapshot{
		Ticker:    snap.Ticker,
		YesPrice:  snap.YesPrice,
		NoPrice:   snap.NoPrice,
		LastPrice: snap.LastPrice,
		Volume:    snap.Volume,
		Source:    snap.Source,
		TS:        snap.Time.Unix(),
	})
	if err != nil {
		return fmt.Errorf("redis: encode snapshot %s: %w", snap.Ticker, err)
	}
	if err := sc.rdb.Set(ctx, snapKey(snap.Ticker), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.Ticker, err)
	}
	return nil
}

// GetSnapshot retrieves the cached snapshot for a ticker. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, ticker string) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, snapKey(ticker)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot %s: %w", ticker, err)
	}

	var c cachedSnapshot
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: decode snapshot %s: %w", ticker, err)
	}

	return domain.Snapshot{
		Ticker:    c.Ticker,
		YesPrice:  c.YesPrice,
		NoPrice:   c.NoPrice,
		LastPrice: c.LastPrice,
		Volume:    c.Volume,
		Source:    c.Source,
		Time:      time.Unix(c.TS, 0).UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
