package kalshi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kwatch/kalshibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(bases ...string) *Client {
	return NewClient("", bases, 5*time.Second, testLogger())
}

func jsonHandler(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func TestGetFallsBackOnNonJSONBody(t *testing.T) {
	blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html>blocked</html>")
	}))
	defer blocked.Close()

	good := httptest.NewServer(jsonHandler(http.StatusOK, map[string]any{
		"market": map[string]any{"ticker": "KXTEST-1", "status": "open", "yes_ask": 55},
	}))
	defer good.Close()

	c := newTestClient(blocked.URL, good.URL)
	m, err := c.GetMarket(context.Background(), "KXTEST-1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if m.YesAsk != 55 {
		t.Errorf("YesAsk = %d, want 55", m.YesAsk)
	}
}

func TestGetFallsBackOnHTTPError(t *testing.T) {
	failing := httptest.NewServer(jsonHandler(http.StatusForbidden, ErrorResponse{
		Code: "forbidden", Message: "nope",
	}))
	defer failing.Close()

	good := httptest.NewServer(jsonHandler(http.StatusOK, map[string]any{
		"market": map[string]any{"ticker": "KXTEST-1", "status": "open", "yes_bid": 40},
	}))
	defer good.Close()

	c := newTestClient(failing.URL, good.URL)
	m, err := c.GetMarket(context.Background(), "KXTEST-1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if m.YesBid != 40 {
		t.Errorf("YesBid = %d, want 40", m.YesBid)
	}
}

func TestGetAllBasesFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	down.Close() // immediately closed: connection refused

	blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "maintenance")
	}))
	defer blocked.Close()

	c := newTestClient(down.URL, blocked.URL)
	_, err := c.GetMarket(context.Background(), "KXTEST-1")
	if err == nil {
		t.Fatal("expected error when every base fails")
	}
	if !errors.Is(err, domain.ErrAllBasesFailed) {
		t.Errorf("error = %v, want wrapping domain.ErrAllBasesFailed", err)
	}
}

func TestProxyBaseTriedFirst(t *testing.T) {
	var proxyHits, publicHits atomic.Int32

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		jsonHandler(http.StatusOK, map[string]any{
			"market": map[string]any{"ticker": "KXTEST-1", "status": "open", "yes_ask": 10},
		})(w, r)
	}))
	defer proxy.Close()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicHits.Add(1)
	}))
	defer public.Close()

	c := NewClient(proxy.URL, []string{public.URL}, 5*time.Second, testLogger())
	if _, err := c.GetMarket(context.Background(), "KXTEST-1"); err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if proxyHits.Load() != 1 {
		t.Errorf("proxy hits = %d, want 1", proxyHits.Load())
	}
	if publicHits.Load() != 0 {
		t.Errorf("public hits = %d, want 0", publicHits.Load())
	}
}

func TestListOpenFollowsCursor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if got := r.URL.Query().Get("status"); got != "open" {
			t.Errorf("status = %q, want open", got)
		}
		page := marketsPage{}
		switch n {
		case 1:
			if r.URL.Query().Get("cursor") != "" {
				t.Error("first page should carry no cursor")
			}
			page.Markets = []Market{{Ticker: "KXAAA-1", Title: "A", Volume: 5, YesAsk: 30}}
			page.Cursor = "next"
		default:
			if got := r.URL.Query().Get("cursor"); got != "next" {
				t.Errorf("cursor = %q, want next", got)
			}
			page.Markets = []Market{{Ticker: "KXBBB-1", Title: "B", Volume: 9}}
		}
		jsonHandler(http.StatusOK, page)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	markets, err := c.ListOpen(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(markets))
	}
	if markets[0].Ticker != "KXAAA-1" || markets[1].Ticker != "KXBBB-1" {
		t.Errorf("unexpected order: %v", markets)
	}
	if markets[0].Yes == nil || *markets[0].Yes != 0.30 {
		t.Errorf("first market Yes = %v, want 0.30", markets[0].Yes)
	}
}

func TestListOpenRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := marketsPage{Cursor: "more"}
		for i := 0; i < 200; i++ {
			page.Markets = append(page.Markets, Market{Ticker: fmt.Sprintf("KXM-%d", i)})
		}
		jsonHandler(http.StatusOK, page)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	markets, err := c.ListOpen(context.Background(), 150)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(markets) != 150 {
		t.Errorf("got %d markets, want 150", len(markets))
	}
}

func TestSnapshotClosedMarketShortCircuits(t *testing.T) {
	var bookCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/KXDONE-1":
			jsonHandler(http.StatusOK, marketEnvelope{Market: Market{
				Ticker: "KXDONE-1", Status: "settled", LastPrice: 97, Volume: 1234,
			}})(w, r)
		case "/markets/KXDONE-1/orderbook":
			bookCalls.Add(1)
			jsonHandler(http.StatusOK, orderbookEnvelope{Orderbook: Orderbook{
				Yes: []PriceLevel{{Price: 96, Quantity: 1}},
			}})(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	snap, err := c.Snapshot(context.Background(), "KXDONE-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.HasPrice() || snap.NoPrice != nil || snap.LastPrice != nil {
		t.Errorf("closed market must report no prices, got %+v", snap)
	}
	if bookCalls.Load() != 0 {
		t.Error("closed market must not fall through to the orderbook")
	}
	if snap.Volume != 1234 {
		t.Errorf("Volume = %d, want 1234", snap.Volume)
	}
}

func TestSnapshotOrderbookFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/KXQUIET-1":
			// Open market with no quotes at all in the detail record.
			jsonHandler(http.StatusOK, marketEnvelope{Market: Market{
				Ticker: "KXQUIET-1", Status: "open", Volume: 7,
			}})(w, r)
		case "/markets/KXQUIET-1/orderbook":
			jsonHandler(http.StatusOK, orderbookEnvelope{Orderbook: Orderbook{
				Yes: []PriceLevel{{Price: 60, Quantity: 2}, {Price: 45, Quantity: 1}},
			}})(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	snap, err := c.Snapshot(context.Background(), "KXQUIET-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.YesPrice == nil || *snap.YesPrice != 0.45 {
		t.Fatalf("YesPrice = %v, want 0.45 (cheapest ask)", snap.YesPrice)
	}
	if snap.Source != "ask" {
		t.Errorf("Source = %q, want ask", snap.Source)
	}
	if snap.Volume != 7 {
		t.Errorf("Volume = %d, want 7 (carried from detail)", snap.Volume)
	}
}

func TestSnapshotNoDataIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/KXEMPTY-1":
			jsonHandler(http.StatusOK, marketEnvelope{Market: Market{
				Ticker: "KXEMPTY-1", Status: "open",
			}})(w, r)
		case "/markets/KXEMPTY-1/orderbook":
			jsonHandler(http.StatusOK, orderbookEnvelope{})(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	snap, err := c.Snapshot(context.Background(), "KXEMPTY-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.HasPrice() {
		t.Errorf("expected no resolved price, got %v", *snap.YesPrice)
	}
}
