package transliteration

import "strings"

// itrans implements the Hindi ITRANS romanization scheme for
// Devanagari. Consonants carry an implicit 'a'; an explicit vowel after
// a consonant becomes its matra; consonant clusters are joined with a
// virama.
type itrans struct{}

func newITrans() itrans { return itrans{} }

func (itrans) Name() string { return "hi-itrans" }

const virama = "्"

// itransConsonants maps romanizations to full consonant forms.
var itransConsonants = map[string]string{
	"k": "क", "kh": "ख", "g": "ग", "gh": "घ", "~N": "ङ",
	"ch": "च", "Ch": "छ", "j": "ज", "jh": "झ", "~n": "ञ",
	"T": "ट", "Th": "ठ", "D": "ड", "Dh": "ढ", "N": "ण",
	"t": "त", "th": "थ", "d": "द", "dh": "ध", "n": "न",
	"p": "प", "ph": "फ", "b": "ब", "bh": "भ", "m": "म",
	"y": "य", "r": "र", "l": "ल", "v": "व", "w": "व",
	"sh": "श", "Sh": "ष", "s": "स", "h": "ह",
	"x": "क्ष", "GY": "ज्ञ", "q": "क़", "z": "ज़", "f": "फ़",
}

// itransVowels maps romanizations to (independent form, matra).
var itransVowels = map[string][2]string{
	"a":  {"अ", ""},
	"aa": {"आ", "ा"},
	"A":  {"आ", "ा"},
	"i":  {"इ", "ि"},
	"ii": {"ई", "ी"},
	"I":  {"ई", "ी"},
	"u":  {"उ", "ु"},
	"uu": {"ऊ", "ू"},
	"U":  {"ऊ", "ू"},
	"e":  {"ए", "े"},
	"ai": {"ऐ", "ै"},
	"o":  {"ओ", "ो"},
	"au": {"औ", "ौ"},
	"RRi": {"ऋ", "ृ"},
}

// itransSigns are standalone signs.
var itransSigns = map[string]string{
	"M":  "ं", // anusvara
	".n": "ं",
	"H":  "ः", // visarga
	".a": "ऽ", // avagraha
	"OM": "ॐ",
	"|":  "।",
	"||": "॥",
	"0":  "०", "1": "१", "2": "२", "3": "३", "4": "४",
	"5": "५", "6": "६", "7": "७", "8": "८", "9": "९",
}

// itransMaxToken is the longest romanization the tables contain.
const itransMaxToken = 3

// Transliterate converts the key sequence with longest-match
// tokenization. Unrecognized characters pass through and break any
// pending consonant.
func (itrans) Transliterate(keys []rune) string {
	var out strings.Builder
	pending := false // a consonant awaiting its vowel

	flushPending := func() {
		if pending {
			// Trailing consonant keeps its inherent vowel suppressed.
			out.WriteString(virama)
			pending = false
		}
	}

	i := 0
	for i < len(keys) {
		matched := false
		for n := itransMaxToken; n >= 1 && !matched; n-- {
			if i+n > len(keys) {
				continue
			}
			tok := string(keys[i : i+n])

			if vowel, ok := itransVowels[tok]; ok {
				if pending {
					out.WriteString(vowel[1])
					pending = false
				} else {
					out.WriteString(vowel[0])
				}
				i += n
				matched = true
				break
			}
			if cons, ok := itransConsonants[tok]; ok {
				if pending {
					out.WriteString(virama)
				}
				out.WriteString(cons)
				pending = true
				i += n
				matched = true
				break
			}
			if sign, ok := itransSigns[tok]; ok {
				flushPending()
				out.WriteString(sign)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			flushPending()
			out.WriteRune(keys[i])
			i++
		}
	}
	flushPending()
	return out.String()
}
