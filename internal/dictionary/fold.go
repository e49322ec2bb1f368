package dictionary

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newFolder builds the accent-folding transformer: decompose to NFKD,
// strip combining marks, lowercase. Transformers carry state, so each
// caller gets its own.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(unicode.ToLower),
	)
}

// Fold returns the accent- and case-folded form of s, the canonical
// form used for accent-insensitive prefix matching. The accented
// original is what candidates display. On a transform error (malformed
// input) the lowercased input is returned unchanged.
func Fold(s string) string {
	folded, _, err := transform.String(newFolder(), s)
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
