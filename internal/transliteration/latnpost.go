package transliteration

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// latnPost implements postfix accent typing for Latin scripts: a letter
// followed by a mark character gains the corresponding diacritic, e.g.
// "a'" becomes á and "u\"" becomes ü. Doubling the mark character
// yields the literal mark.
type latnPost struct{}

func (latnPost) Name() string { return "t-latn-post" }

// postfixMarks maps typed mark characters to combining marks.
var postfixMarks = map[rune]rune{
	'\'': 0x0301, // acute
	'`':  0x0300, // grave
	'^':  0x0302, // circumflex
	'~':  0x0303, // tilde
	'"':  0x0308, // diaeresis
	',':  0x0327, // cedilla
	'-':  0x0304, // macron
	'/':  0x0338, // stroke
}

// Transliterate applies postfix marks and NFC-normalizes the result.
func (latnPost) Transliterate(keys []rune) string {
	out := make([]rune, 0, len(keys))
	for _, r := range keys {
		mark, isMark := postfixMarks[r]
		n := len(out)
		if isMark && n > 0 {
			prev := out[n-1]
			if prev == r {
				// Doubled mark character: keep one literal.
				continue
			}
			if unicode.IsLetter(prev) {
				out = append(out, mark)
				continue
			}
		}
		out = append(out, r)
	}
	return norm.NFC.String(string(out))
}
