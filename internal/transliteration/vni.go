package transliteration

import (
	"strings"
	"unicode"
)

// vni implements the Vietnamese VNI typing method: digits 1-5 carry
// the tones, 6 marks the circumflex, 7 the horn, 8 the breve and 9
// turns d into đ; 0 removes the tone.
type vni struct{}

func newVNI() vni { return vni{} }

func (vni) Name() string { return "vi-vni" }

// VNI tone digit mappings.
var vniToneKeys = map[rune]toneMark{
	'1': toneSac,
	'2': toneHuyen,
	'3': toneHoi,
	'4': toneNga,
	'5': toneNang,
	'0': toneNone,
}

// vniVowelTargets lists which vowels each mark digit modifies.
var vniVowelTargets = map[rune]map[rune]rune{
	'6': {'a': 'â', 'e': 'ê', 'o': 'ô'},
	'7': {'o': 'ơ', 'u': 'ư'},
	'8': {'a': 'ă'},
	'9': {'d': 'đ'},
}

// feedVNI processes one typed key against the word; digits act as
// modifiers once the word has something to modify.
func (w *telexWord) feedVNI(r rune) bool {
	if unicode.IsLetter(r) {
		w.letters = append(w.letters, r)
		return true
	}
	if !unicode.IsDigit(r) {
		return false
	}

	if tone, ok := vniToneKeys[r]; ok && w.hasVowel() {
		if w.tone == tone && tone != toneNone {
			// Doubling the digit reverts and types it literally.
			w.tone = toneNone
			w.letters = append(w.letters, r)
		} else {
			w.tone = tone
		}
		return true
	}

	if targets, ok := vniVowelTargets[r]; ok {
		// The digit modifies the most recent applicable letter. The
		// uo + 7 pair forms ươ like Telex's uo + w.
		for i := len(w.letters) - 1; i >= 0; i-- {
			v := w.letters[i]
			marked, ok := targets[unicode.ToLower(v)]
			if !ok {
				continue
			}
			if r == '7' && unicode.ToLower(v) == 'o' && i >= 1 && unicode.ToLower(w.letters[i-1]) == 'u' {
				u := w.letters[i-1]
				horn := 'ư'
				if unicode.IsUpper(u) {
					horn = 'Ư'
				}
				w.letters[i-1] = horn
			}
			if unicode.IsUpper(v) {
				marked = unicode.ToUpper(marked)
			}
			w.letters[i] = marked
			return true
		}
	}

	// A digit with nothing to modify ends the word and passes through.
	return false
}

// Transliterate recomputes the VNI rendering of the whole key
// sequence.
func (vni) Transliterate(keys []rune) string {
	var out strings.Builder
	var w telexWord
	for _, r := range keys {
		if w.feedVNI(r) {
			continue
		}
		out.WriteString(w.render())
		out.WriteRune(r)
		w = telexWord{}
	}
	out.WriteString(w.render())
	return out.String()
}
