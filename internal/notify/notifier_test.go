package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingSender captures deliveries in memory.
type recordingSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func TestAlertFiredDelivers(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventAlert}, testLogger())

	n.AlertFired(context.Background(), "G1", "KXEXAMPLE-1", 0.48, 0.50)

	if len(s.messages) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(s.messages))
	}
	if s.titles[0] != "Alert: KXEXAMPLE-1" {
		t.Errorf("title = %q", s.titles[0])
	}
	msg := s.messages[0]
	if !strings.Contains(msg, "48¢") || !strings.Contains(msg, "50¢") || !strings.Contains(msg, "G1") {
		t.Errorf("message missing details: %q", msg)
	}
	if !strings.Contains(msg, "event_id: ") {
		t.Errorf("message missing event id: %q", msg)
	}
}

func TestEventFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventError}, testLogger())

	n.AlertFired(context.Background(), "G1", "KXEXAMPLE-1", 0.48, 0.50)
	if len(s.messages) != 0 {
		t.Errorf("alert passed a filter that only allows errors: %q", s.messages)
	}

	n.SweepError(context.Background(), errors.New("boom"))
	if len(s.messages) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(s.messages))
	}
	if s.messages[0] != "boom" {
		t.Errorf("message = %q, want boom", s.messages[0])
	}
}

func TestEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	n.AlertFired(context.Background(), "G1", "KXEXAMPLE-1", 0.48, 0.50)
	n.SweepError(context.Background(), errors.New("boom"))
	if len(s.messages) != 2 {
		t.Errorf("deliveries = %d, want 2", len(s.messages))
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	n.SweepError(context.Background(), errors.New("boom"))
	if len(good.messages) != 1 {
		t.Errorf("healthy sender deliveries = %d, want 1", len(good.messages))
	}
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	if err := s.Send(context.Background(), "Title", "body text"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got["content"] != "**Title**\nbody text" {
		t.Errorf("content = %q", got["content"])
	}
}

func TestWebhookSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	err := s.Send(context.Background(), "Title", "body")
	if err == nil {
		t.Fatal("expected an error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}
