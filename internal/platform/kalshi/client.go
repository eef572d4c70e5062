// Package kalshi is the REST client for the public Kalshi market-data API.
// Requests are unauthenticated GETs; the client tries a list of candidate base
// URLs in order and treats a non-JSON response body as a block page, moving on
// to the next base.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
)

// listSafetyCap bounds how many markets a paginated listing walk will collect
// regardless of the caller's limit.
const listSafetyCap = 1000

// Client is the REST client for the Kalshi market-data API.
type Client struct {
	bases      []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client that will try each base URL in order. An optional
// proxy base, when non-empty, is tried before the public bases.
func NewClient(proxyBase string, bases []string, timeout time.Duration, logger *slog.Logger) *Client {
	all := make([]string, 0, len(bases)+1)
	if proxyBase != "" {
		all = append(all, strings.TrimRight(proxyBase, "/"))
	}
	for _, b := range bases {
		all = append(all, strings.TrimRight(b, "/"))
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		bases: all,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "kalshi")),
	}
}

// Snapshot resolves the current price/volume state for a ticker. The detail
// record is consulted first (yes ask, then yes bid, then last trade); a closed
// market short-circuits to an all-absent result. Only when the detail record
// has no usable price does the orderbook fallback run. A reachable API with no
// usable price yields a snapshot with nil prices and a nil error; an error is
// returned only when the API itself could not be reached.
func (c *Client) Snapshot(ctx context.Context, ticker string) (domain.Snapshot, error) {
	market, detailErr := c.GetMarket(ctx, ticker)
	if detailErr == nil {
		snap := snapshotFromMarket(ticker, market)
		if snap.HasPrice() || market.IsClosed() {
			return snap, nil
		}
		// Detail record had no usable quote; try the book.
		if book, err := c.GetOrderbook(ctx, ticker); err == nil {
			return snapshotFromBook(ticker, book, snap), nil
		}
		return snap, nil
	}

	// Detail fetch failed entirely; the orderbook is the only hope.
	book, bookErr := c.GetOrderbook(ctx, ticker)
	if bookErr != nil {
		return domain.Snapshot{}, fmt.Errorf("kalshi: snapshot %s: %w", ticker, detailErr)
	}
	return snapshotFromBook(ticker, book, domain.Snapshot{
		Ticker: ticker,
		Time:   time.Now().UTC(),
	}), nil
}

// ListOpen returns up to limit open markets, following the pagination cursor.
func (c *Client) ListOpen(ctx context.Context, limit int) ([]domain.MarketInfo, error) {
	if limit <= 0 || limit > listSafetyCap {
		limit = listSafetyCap
	}

	var out []domain.MarketInfo
	cursor := ""
	for {
		params := url.Values{}
		params.Set("status", "open")
		params.Set("limit", strconv.Itoa(200))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page marketsPage
		if err := c.get(ctx, "/markets?"+params.Encode(), &page); err != nil {
			return nil, fmt.Errorf("kalshi: list open markets: %w", err)
		}

		for _, m := range page.Markets {
			out = append(out, infoFromMarket(m))
		}

		cursor = page.Cursor
		if cursor == "" || len(out) >= limit {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetMarket returns a single market detail record by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	var env marketEnvelope
	if err := c.get(ctx, "/markets/"+url.PathEscape(ticker), &env); err != nil {
		return Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}
	return env.Market, nil
}

// GetOrderbook returns the current orderbook for the given market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (Orderbook, error) {
	var env orderbookEnvelope
	if err := c.get(ctx, "/markets/"+url.PathEscape(ticker)+"/orderbook", &env); err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}
	return env.Orderbook, nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// get issues a GET against each configured base in order and decodes the first
// JSON response into dst. A transport error, non-2xx status, or non-JSON
// content type (a block page rather than data) advances to the next base. Only
// when every base fails does get return an error, wrapping the last underlying
// failure.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	var lastErr error
	for _, base := range c.bases {
		body, err := c.tryBase(ctx, base, path)
		if err != nil {
			lastErr = err
			c.logger.DebugContext(ctx, "base failed, trying next",
				slog.String("base", base),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := json.Unmarshal(body, dst); err != nil {
			lastErr = fmt.Errorf("decode %s: %w", path, err)
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = domain.ErrAllBasesFailed
	}
	return fmt.Errorf("%w: %w", domain.ErrAllBasesFailed, lastErr)
}

// tryBase performs one GET against a single base and validates the response.
func (c *Client) tryBase(ctx context.Context, base, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// A block page comes back as HTML; treat any non-JSON body as a miss.
	ctype := resp.Header.Get("Content-Type")
	if !strings.Contains(ctype, "application/json") {
		return nil, fmt.Errorf("non-JSON response from %s: %d %s", base, resp.StatusCode, ctype)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("HTTP %d: %s (%s)", resp.StatusCode, apiErr.Message, apiErr.Code)
	}

	return body, nil
}

// setBrowserHeaders makes the request look like an ordinary browser fetch.
// Some CDN fronts serve a block page to bare clients.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json,text/plain,*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Origin", "https://kalshi.com")
	req.Header.Set("Referer", "https://kalshi.com/")
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36")
}

// Compile-time interface check.
var _ domain.MarketData = (*Client)(nil)
