package kalshi

import (
	"regexp"
	"strings"
)

// tickerPattern matches a Kalshi market ticker inside free text or a pasted
// kalshi.com URL. Tickers start with the KX series prefix followed by at least
// six alphanumeric/separator characters.
var tickerPattern = regexp.MustCompile(`(KX[A-Z0-9_.-]{6,})`)

// ExtractTicker accepts a raw ticker or any text containing one (such as a
// market URL) and returns the uppercased ticker, or "" when none is present.
func ExtractTicker(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	if m := tickerPattern.FindString(s); m != "" {
		return m
	}
	return ""
}
