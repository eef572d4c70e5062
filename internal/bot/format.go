package bot

import (
	"fmt"
	"math"
	"strings"

	"github.com/kwatch/kalshibot/internal/domain"
)

// maxMessageLen is the ceiling for a single reply segment, comfortably under
// Discord's 2000-character message limit.
const maxMessageLen = 1800

// Cents renders a [0,1] price as integer cents, or an em dash when absent.
func Cents(price *float64) string {
	if price == nil {
		return "—"
	}
	return fmt.Sprintf("%.0f¢", math.Round(*price*100))
}

// sourceTag annotates where the YES estimate came from.
func sourceTag(source string) string {
	switch source {
	case "ask":
		return "(ask)"
	case "bid":
		return "(bid)"
	case "1-no":
		return "(1−NO)"
	case "last":
		return "(last)"
	default:
		return ""
	}
}

// FormatDelta renders a delta line for the vol report. When history had
// nothing recorded yet, hasDelta is false. A partial delta (recorded span
// shorter than the requested lookback) says so instead of pretending the full
// window was covered.
func FormatDelta(d domain.Delta, hasDelta bool, requestedMinutes int) string {
	if !hasDelta {
		return "Δ — (no captured quotes yet; try again later)"
	}

	sign := ""
	if d.Cents > 0 {
		sign = "+"
	}
	line := fmt.Sprintf("Δ %s%d¢ over %dm (from %d¢ → %d¢)", sign, d.Cents, d.Minutes, d.From, d.To)
	if d.Partial && d.Minutes < requestedMinutes {
		line += fmt.Sprintf(" — only %dm of history so far", d.Minutes)
	}
	return line
}

// ChunkEntries joins entries with sep, splitting into segments no longer than
// maxMessageLen. Splits only fall between entries, never inside one. A single
// entry longer than the ceiling is truncated.
func ChunkEntries(entries []string, sep string) []string {
	var chunks []string
	var cur strings.Builder

	for _, e := range entries {
		if len(e) > maxMessageLen {
			e = e[:maxMessageLen]
		}
		if cur.Len() > 0 && cur.Len()+len(sep)+len(e) > maxMessageLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(e)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
