// Package keys builds deterministic result-cache keys from analysis
// requests.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Key fingerprints a normalized request payload. The CRS and layer
// count stay readable for debugging; the payload itself collapses to
// an xxhash so keys stay short and ASCII-safe.
func Key(crs string, layers int, payload []byte) string {
	crsNorm := sanitize(strings.TrimSpace(crs))
	sum := xxhash.Sum64(payload)
	return fmt.Sprintf("analyze:%s:n=%d:f=%016x", crsNorm, layers, sum)
}

func sanitize(s string) string {
	if s == "" {
		return "-"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
