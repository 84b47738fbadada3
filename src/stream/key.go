package stream

import (
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Subscription key derivation. Two requests for the same logical subscription
// must produce byte-identical keys so redundant reconnects are suppressed.
// -----------------------------------------------------------------------------

// NormalizeSymbols uppercases, trims, dedupes and sorts a symbol set.
// The returned slice is freshly allocated.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))

	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// ParseKey splits a canonical key back into its parts. Inverse of BuildKey
// for keys BuildKey produced.
func ParseKey(key string) (scope, window string, symbols []string) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", nil
	}
	scope, window = parts[0], parts[1]
	if parts[2] != "" {
		symbols = strings.Split(parts[2], ",")
	}
	return scope, window, symbols
}

// -----------------------------------------------------------------------------

// BuildKey derives the canonical subscription key for
// (scope, window-or-timeframe, symbol set). Symbols must already be
// normalized via NormalizeSymbols; BuildKey normalizes again defensively
// since key equality is what guards against reconnect storms.
func BuildKey(scope, window string, symbols []string) string {
	norm := NormalizeSymbols(symbols)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(scope))
	b.WriteByte('|')
	b.WriteString(strings.TrimSpace(window))
	b.WriteByte('|')
	b.WriteString(strings.Join(norm, ","))
	return b.String()
}
