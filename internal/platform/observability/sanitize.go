package observability

import (
	"strings"
	"unicode"
)

// clean strips control characters from s and keeps at most limit runes.
func clean(s string, limit int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// SanitizeActor caps a login name or uid before it is logged.
func SanitizeActor(actor string) string {
	return clean(strings.TrimSpace(actor), 64)
}
