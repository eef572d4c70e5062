package kalshi

import (
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
)

// The mapping from raw API shapes to domain.Snapshot lives in pure functions
// here so the "try this field, then that field" fallback logic stays in one
// reviewable place.

// centsToPrice converts an integer cent quote (1-99) to a [0,1] price. Zero
// means "no quote" upstream and maps to nil.
func centsToPrice(cents int64) *float64 {
	if cents <= 0 {
		return nil
	}
	p := float64(cents) / 100.0
	return &p
}

// snapshotFromMarket extracts a snapshot from the market detail record.
// Priority: yes ask, then yes bid, then last traded price. A closed market
// reports no prices at all, even when a stale last trade exists.
func snapshotFromMarket(ticker string, m Market) domain.Snapshot {
	snap := domain.Snapshot{
		Ticker: ticker,
		Volume: m.Volume,
		Time:   time.Now().UTC(),
	}

	if m.IsClosed() {
		return snap
	}

	snap.LastPrice = centsToPrice(m.LastPrice)
	snap.NoPrice = centsToPrice(m.NoBid)

	switch {
	case m.YesAsk > 0:
		snap.YesPrice = centsToPrice(m.YesAsk)
		snap.Source = "ask"
	case m.YesBid > 0:
		snap.YesPrice = centsToPrice(m.YesBid)
		snap.Source = "bid"
	case m.LastPrice > 0:
		snap.YesPrice = centsToPrice(m.LastPrice)
		snap.Source = "last"
	}

	return snap
}

// snapshotFromBook fills the YES price from the orderbook into base: the
// cheapest ask on the yes side wins; with only no-side data the price is
// derived as 1 - best no. Volume and last-trade data from the detail record
// are preserved.
func snapshotFromBook(ticker string, book Orderbook, base domain.Snapshot) domain.Snapshot {
	base.Ticker = ticker

	if yes := bestAsk(book.Yes); yes != nil {
		base.YesPrice = yes
		base.Source = "ask"
	}
	if no := bestAsk(book.No); no != nil {
		base.NoPrice = no
		if base.YesPrice == nil {
			derived := 1.0 - *no
			base.YesPrice = &derived
			base.Source = "1-no"
		}
	}

	return base
}

// bestAsk returns the numerically lowest (cheapest) price on a book side.
func bestAsk(levels []PriceLevel) *float64 {
	var best *float64
	for _, lvl := range levels {
		p := centsToPrice(lvl.Price)
		if p == nil {
			continue
		}
		if best == nil || *p < *best {
			best = p
		}
	}
	return best
}

// infoFromMarket maps a listing record to the command surface's view of it.
// The YES estimate follows the same field priority as the detail snapshot, and
// Spread feeds the activity ranking.
func infoFromMarket(m Market) domain.MarketInfo {
	info := domain.MarketInfo{
		Ticker: m.Ticker,
		Title:  m.Title,
		Volume: m.Volume,
	}

	switch {
	case m.YesAsk > 0:
		info.Yes = centsToPrice(m.YesAsk)
	case m.YesBid > 0:
		info.Yes = centsToPrice(m.YesBid)
	case m.LastPrice > 0:
		info.Yes = centsToPrice(m.LastPrice)
	}

	if info.Yes != nil && m.NoBid > 0 {
		no := float64(m.NoBid) / 100.0
		info.Spread = *info.Yes - (1.0 - no)
		if info.Spread < 0 {
			info.Spread = -info.Spread
		}
	}

	return info
}
