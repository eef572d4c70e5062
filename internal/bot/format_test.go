package bot

import (
	"strings"
	"testing"

	"github.com/kwatch/kalshibot/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestCents(t *testing.T) {
	tests := []struct {
		price *float64
		want  string
	}{
		{fptr(0.42), "42¢"},
		{fptr(0.425), "43¢"},
		{fptr(0.01), "1¢"},
		{fptr(1.0), "100¢"},
		{nil, "—"},
	}
	for _, tt := range tests {
		if got := Cents(tt.price); got != tt.want {
			t.Errorf("Cents(%v) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		name      string
		delta     domain.Delta
		hasDelta  bool
		requested int
		want      string
	}{
		{
			name:      "no history yet",
			hasDelta:  false,
			requested: 60,
			want:      "Δ — (no captured quotes yet; try again later)",
		},
		{
			name:      "negative move",
			delta:     domain.Delta{Cents: -2, From: 42, To: 40, Minutes: 60},
			hasDelta:  true,
			requested: 60,
			want:      "Δ -2¢ over 60m (from 42¢ → 40¢)",
		},
		{
			name:      "positive move carries a plus sign",
			delta:     domain.Delta{Cents: 5, From: 50, To: 55, Minutes: 60},
			hasDelta:  true,
			requested: 60,
			want:      "Δ +5¢ over 60m (from 50¢ → 55¢)",
		},
		{
			name:      "partial window is called out",
			delta:     domain.Delta{Cents: 3, From: 30, To: 33, Minutes: 10, Partial: true},
			hasDelta:  true,
			requested: 60,
			want:      "Δ +3¢ over 10m (from 30¢ → 33¢) — only 10m of history so far",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDelta(tt.delta, tt.hasDelta, tt.requested); got != tt.want {
				t.Errorf("FormatDelta = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkEntriesSingleChunk(t *testing.T) {
	chunks := ChunkEntries([]string{"a", "b", "c"}, "\n")
	if len(chunks) != 1 || chunks[0] != "a\nb\nc" {
		t.Errorf("chunks = %q, want one joined chunk", chunks)
	}
}

func TestChunkEntriesSplitsBetweenEntries(t *testing.T) {
	entry := strings.Repeat("x", 700)
	chunks := ChunkEntries([]string{entry, entry, entry, entry}, "\n")

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want a split", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > maxMessageLen {
			t.Errorf("chunk %d is %d chars, exceeds %d", i, len(c), maxMessageLen)
		}
		// Every chunk must be whole entries joined by the separator.
		for _, part := range strings.Split(c, "\n") {
			if part != entry {
				t.Errorf("chunk %d contains a fragmented entry of %d chars", i, len(part))
			}
		}
	}
}

func TestChunkEntriesTruncatesOversizeEntry(t *testing.T) {
	huge := strings.Repeat("y", maxMessageLen+500)
	chunks := ChunkEntries([]string{huge}, "\n")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if len(chunks[0]) != maxMessageLen {
		t.Errorf("chunk length = %d, want %d", len(chunks[0]), maxMessageLen)
	}
}

func TestChunkEntriesEmpty(t *testing.T) {
	chunks := ChunkEntries(nil, "\n")
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("chunks = %q, want a single empty chunk", chunks)
	}
}
