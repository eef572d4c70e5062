package kalshi

// ---------------------------------------------------------------------------
// Kalshi public market-data API DTOs
// ---------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Monetary
// fields are integer cents (1-99).
type Market struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"` // "open", "closed", "settled", ...
	YesBid      int64  `json:"yes_bid"`
	YesAsk      int64  `json:"yes_ask"`
	NoBid       int64  `json:"no_bid"`
	NoAsk       int64  `json:"no_ask"`
	LastPrice   int64  `json:"last_price"`
	Volume      int64  `json:"volume"`
	Volume24H   int64  `json:"volume_24h"`
	OpenTime    string `json:"open_time"`
	CloseTime   string `json:"close_time"`
	Result      string `json:"result"` // "yes", "no", "" (unsettled)
}

// Orderbook represents the orderbook for a Kalshi market. Each side is a list
// of [price, quantity] pairs with price in cents.
type Orderbook struct {
	Yes []PriceLevel `json:"yes"`
	No  []PriceLevel `json:"no"`
}

// PriceLevel is a single price+quantity entry in the Kalshi orderbook.
type PriceLevel struct {
	Price    int64 `json:"price"`    // in cents (1-99)
	Quantity int64 `json:"quantity"` // number of contracts
}

// ErrorResponse represents a Kalshi API error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// marketsPage is the envelope of the paginated markets listing.
type marketsPage struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// marketEnvelope wraps the single-market detail response.
type marketEnvelope struct {
	Market Market `json:"market"`
}

// orderbookEnvelope wraps the orderbook response.
type orderbookEnvelope struct {
	Orderbook Orderbook `json:"orderbook"`
}

// closedStatuses are market states in which quotes are no longer meaningful;
// the snapshot short-circuits to "no price" for these.
var closedStatuses = map[string]bool{
	"closed":      true,
	"expired":     true,
	"settled":     true,
	"finalized":   true,
	"determined":  true,
	"deactivated": true,
}

// IsClosed reports whether the market is in a terminal state.
func (m Market) IsClosed() bool {
	return closedStatuses[m.Status]
}
