// Package domain defines the shared types, store interfaces, and sentinel
// errors used across the kalshibot subsystems.
package domain

import "time"

// Snapshot is a point-in-time read of a market's price and volume state. Price
// fields are nil when the upstream data did not resolve to a usable value; the
// bot never surfaces a zero price for an unresolved quote.
type Snapshot struct {
	Ticker string
	// YesPrice is the resolved YES-side probability estimate in [0,1],
	// following the detail-then-orderbook fallback chain.
	YesPrice *float64
	// NoPrice is the best NO-side price in [0,1], when the orderbook had one.
	NoPrice *float64
	// LastPrice is the last traded YES price in [0,1], when available.
	LastPrice *float64
	Volume    int64
	// Source names where YesPrice came from: "ask", "bid", "last", "1-no",
	// or "" when no price resolved.
	Source string
	Time   time.Time
}

// HasPrice reports whether the snapshot carries a resolved YES price.
func (s Snapshot) HasPrice() bool {
	return s.YesPrice != nil
}

// MarketInfo is the subset of a market listing entry the command surface needs.
type MarketInfo struct {
	Ticker string
	Title  string
	Volume int64
	// Yes is the YES price estimate from the listing record, nil when the
	// listing carried no usable quote.
	Yes *float64
	// Spread is |yes - (1 - no)| from the listing quotes, used for activity
	// ranking. Zero when either side is missing.
	Spread float64
}

// PricePoint is a single recorded price observation.
type PricePoint struct {
	TS    int64   `json:"ts"`
	Price float64 `json:"yes"`
}

// Delta describes a price change over a lookback window, in integer cents.
type Delta struct {
	Cents   int
	From    int // oldest compared price, cents
	To      int // newest price, cents
	Minutes int // actual elapsed window, at least 1
	// Partial is set when no sample old enough existed and the delta was
	// computed from the full recorded span, which is shorter than requested.
	Partial bool
}

// Watch is a per-guild market subscription with an optional alert threshold.
// A nil Threshold means the watch is tracked but disarmed.
type Watch struct {
	Ticker    string   `json:"ticker"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Armed reports whether the watch has an alert threshold set.
func (w Watch) Armed() bool {
	return w.Threshold != nil
}
