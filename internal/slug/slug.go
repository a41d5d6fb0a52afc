// Package slug turns display names into URL path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make folds a display name into a URL-safe slug: accents removed,
// lowercase ASCII letters and digits, words joined by single hyphens.
//
//	Make("Sault Ste. Marie") == "sault-ste-marie"
//	Make("Trois-Rivières")   == "trois-rivieres"
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// apostrophes vanish: "St. John's" -> "st-johns"
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}
