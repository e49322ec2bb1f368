package transliteration

import (
	"strings"
	"unicode"
)

// telex implements the Vietnamese Telex typing method: tone keys
// (s f r x j z), doubled vowels for circumflex, w for horn/breve and
// dd for đ. Output is precomposed Unicode.
type telex struct{}

func newTelex() telex { return telex{} }

func (telex) Name() string { return "vi-telex" }

// ToneMark represents Vietnamese tone marks.
type toneMark int

const (
	toneNone  toneMark = iota // thanh ngang
	toneSac                   // á
	toneHuyen                 // à
	toneHoi                   // ả
	toneNga                   // ã
	toneNang                  // ạ
)

// Telex tone key mappings.
var telexToneKeys = map[rune]toneMark{
	's': toneSac,
	'f': toneHuyen,
	'r': toneHoi,
	'x': toneNga,
	'j': toneNang,
	'z': toneNone, // remove tone
}

// Double-letter patterns producing marked vowels and đ.
var telexDoublePatterns = map[rune]rune{
	'a': 'â',
	'e': 'ê',
	'o': 'ô',
	'd': 'đ',
}

// Horn/breve transformations triggered by 'w'.
var telexHornPatterns = map[rune]rune{
	'a': 'ă',
	'o': 'ơ',
	'u': 'ư',
}

// Vietnamese vowels with all tone combinations, lowercase.
var telexVowelTones = map[rune][6]rune{
	'a': {'a', 'á', 'à', 'ả', 'ã', 'ạ'},
	'ă': {'ă', 'ắ', 'ằ', 'ẳ', 'ẵ', 'ặ'},
	'â': {'â', 'ấ', 'ầ', 'ẩ', 'ẫ', 'ậ'},
	'e': {'e', 'é', 'è', 'ẻ', 'ẽ', 'ẹ'},
	'ê': {'ê', 'ế', 'ề', 'ể', 'ễ', 'ệ'},
	'i': {'i', 'í', 'ì', 'ỉ', 'ĩ', 'ị'},
	'o': {'o', 'ó', 'ò', 'ỏ', 'õ', 'ọ'},
	'ô': {'ô', 'ố', 'ồ', 'ổ', 'ỗ', 'ộ'},
	'ơ': {'ơ', 'ớ', 'ờ', 'ở', 'ỡ', 'ợ'},
	'u': {'u', 'ú', 'ù', 'ủ', 'ũ', 'ụ'},
	'ư': {'ư', 'ứ', 'ừ', 'ử', 'ữ', 'ự'},
	'y': {'y', 'ý', 'ỳ', 'ỷ', 'ỹ', 'ỵ'},
}

func isTelexVowel(r rune) bool {
	_, ok := telexVowelTones[unicode.ToLower(r)]
	return ok
}

// applyTone puts a tone on a vowel, preserving case.
func applyTone(vowel rune, tone toneMark) rune {
	lower := unicode.ToLower(vowel)
	tones, ok := telexVowelTones[lower]
	if !ok {
		return vowel
	}
	result := tones[tone]
	if unicode.IsUpper(vowel) {
		return unicode.ToUpper(result)
	}
	return result
}

// word is one syllable in flight: the transformed letters plus the tone
// collected so far.
type telexWord struct {
	letters []rune
	tone    toneMark
}

func (w *telexWord) hasVowel() bool {
	for _, r := range w.letters {
		if isTelexVowel(r) {
			return true
		}
	}
	return false
}

// feed processes one typed key against the word. Returns false when the
// key does not belong to the word (punctuation, space, digits), in which
// case the caller flushes.
func (w *telexWord) feed(r rune) bool {
	if !unicode.IsLetter(r) {
		return false
	}
	lower := unicode.ToLower(r)

	// Tone keys act when the word already has a vowel. Typing the same
	// tone key again reverts to thanh ngang and the key turns literal.
	if tone, ok := telexToneKeys[lower]; ok && w.hasVowel() {
		if w.tone == tone && tone != toneNone {
			w.tone = toneNone
			w.letters = append(w.letters, r)
		} else {
			w.tone = tone
		}
		return true
	}

	if n := len(w.letters); n > 0 {
		last := w.letters[n-1]

		// Doubled letter: aa -> â, ee -> ê, oo -> ô, dd -> đ. A third
		// repeat reverts the mark and restores the literal pair.
		if marked, ok := telexDoublePatterns[lower]; ok {
			if unicode.ToLower(last) == lower {
				if unicode.IsUpper(last) {
					marked = unicode.ToUpper(marked)
				}
				w.letters[n-1] = marked
				return true
			}
			if unicode.ToLower(last) == marked {
				base := lower
				if unicode.IsUpper(last) {
					base = unicode.ToUpper(base)
				}
				w.letters[n-1] = base
				w.letters = append(w.letters, r)
				return true
			}
		}

		// 'w' modifies the most recent vowel: horn or breve. The
		// vowel may already be followed by coda consonants (duoc + w).
		if lower == 'w' {
			for i := n - 1; i >= 0; i-- {
				v := w.letters[i]
				marked, ok := telexHornPatterns[unicode.ToLower(v)]
				if !ok {
					if isTelexVowel(v) {
						break
					}
					continue
				}
				// uo + w forms the ươ pair.
				if unicode.ToLower(v) == 'o' && i >= 1 && unicode.ToLower(w.letters[i-1]) == 'u' {
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
	}

	// A bare 'w' becomes ư.
	if lower == 'w' {
		marked := 'ư'
		if unicode.IsUpper(r) {
			marked = 'Ư'
		}
		w.letters = append(w.letters, marked)
		return true
	}

	w.letters = append(w.letters, r)
	return true
}

// render composes the word, placing the tone mark on the correct vowel.
func (w *telexWord) render() string {
	if w.tone == toneNone {
		return string(w.letters)
	}

	// Locate the vowel cluster.
	start, end := -1, -1
	for i, r := range w.letters {
		if isTelexVowel(r) {
			if start < 0 {
				start = i
			}
			end = i + 1
		} else if start >= 0 {
			break
		}
	}
	if start < 0 {
		return string(w.letters)
	}

	nucleus := w.letters[start:end]
	coda := string(w.letters[end:])
	pos := start + tonePosition(nucleus, coda)

	out := make([]rune, len(w.letters))
	copy(out, w.letters)
	out[pos] = applyTone(out[pos], w.tone)
	return string(out)
}

// tonePosition determines which vowel of the cluster takes the tone
// mark, following the traditional placement rules: a marked vowel
// wins (the later one in a ươ pair); with a coda the tone sits on the
// second vowel; without one it sits on the first (hòa, mùa, thủy) or
// the middle of a triphthong.
func tonePosition(nucleus []rune, coda string) int {
	n := len(nucleus)
	if n <= 1 {
		return 0
	}

	firstMarked, lastMarked := -1, -1
	for i, r := range nucleus {
		switch unicode.ToLower(r) {
		case 'ă', 'â', 'ê', 'ô', 'ơ', 'ư':
			if firstMarked < 0 {
				firstMarked = i
			}
			lastMarked = i
		}
	}
	if firstMarked >= 0 {
		if lastMarked != firstMarked {
			return lastMarked
		}
		return firstMarked
	}

	if coda != "" || n >= 3 {
		return 1
	}
	return 0
}

// Transliterate recomputes the Telex rendering of the whole key
// sequence. Non-letters flush the current word and pass through.
func (telex) Transliterate(keys []rune) string {
	var out strings.Builder
	var w telexWord
	for _, r := range keys {
		if w.feed(r) {
			continue
		}
		out.WriteString(w.render())
		out.WriteRune(r)
		w = telexWord{}
	}
	out.WriteString(w.render())
	return out.String()
}
