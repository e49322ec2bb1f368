package emoji

import "strings"

// romanizedWeight down-ranks matches through romanized forms.
const romanizedWeight = 0.5

// Per-token fuzzy scoring: exact beats prefix beats substring beats
// small edit distance, each scaled by how much of the index token the
// query covers.
const (
	exactScore     = 2.0
	prefixScore    = 1.5
	substringScore = 1.0
	editScore      = 0.5
)

// scoreToken scores a query token against an index token. Zero means
// no match.
func scoreToken(query, indexTok string) float64 {
	if query == "" || indexTok == "" {
		return 0
	}
	ratio := float64(len(query)) / float64(len(indexTok))
	if ratio > 1 {
		ratio = 1
	}
	switch {
	case query == indexTok:
		return exactScore
	case strings.HasPrefix(indexTok, query):
		return prefixScore * ratio
	case strings.Contains(indexTok, query):
		return substringScore * ratio
	}
	if d := editDistanceWithin(query, indexTok, 2); d > 0 {
		return editScore * (1 - float64(d)/float64(len(indexTok)+1)) * ratio
	}
	return 0
}

// editDistanceWithin returns the Levenshtein distance between a and b
// when it is at most bound, else 0. Short queries only tolerate one
// edit.
func editDistanceWithin(a, b string, bound int) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) <= 3 && bound > 1 {
		bound = 1
	}
	if diff := len(ra) - len(rb); diff > bound || -diff > bound {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			v := prev[j] + 1
			if c := cur[j-1] + 1; c < v {
				v = c
			}
			if c := prev[j-1] + cost; c < v {
				v = c
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > bound {
			return 0
		}
		prev, cur = cur, prev
	}
	if d := prev[len(rb)]; d > 0 && d <= bound {
		return d
	}
	return 0
}

// kanaRomaji romanizes hiragana and katakana syllables. Digraphs
// (きゃ…) are resolved before single kana.
var kanaRomajiDigraphs = map[string]string{
	"きゃ": "kya", "きゅ": "kyu", "きょ": "kyo",
	"しゃ": "sha", "しゅ": "shu", "しょ": "sho",
	"ちゃ": "cha", "ちゅ": "chu", "ちょ": "cho",
	"にゃ": "nya", "にゅ": "nyu", "にょ": "nyo",
	"ひゃ": "hya", "ひゅ": "hyu", "ひょ": "hyo",
	"みゃ": "mya", "みゅ": "myu", "みょ": "myo",
	"りゃ": "rya", "りゅ": "ryu", "りょ": "ryo",
	"ぎゃ": "gya", "ぎゅ": "gyu", "ぎょ": "gyo",
	"じゃ": "ja", "じゅ": "ju", "じょ": "jo",
	"びゃ": "bya", "びゅ": "byu", "びょ": "byo",
	"ぴゃ": "pya", "ぴゅ": "pyu", "ぴょ": "pyo",
}

var kanaRomaji = map[rune]string{
	'あ': "a", 'い': "i", 'う': "u", 'え': "e", 'お': "o",
	'か': "ka", 'き': "ki", 'く': "ku", 'け': "ke", 'こ': "ko",
	'さ': "sa", 'し': "shi", 'す': "su", 'せ': "se", 'そ': "so",
	'た': "ta", 'ち': "chi", 'つ': "tsu", 'て': "te", 'と': "to",
	'な': "na", 'に': "ni", 'ぬ': "nu", 'ね': "ne", 'の': "no",
	'は': "ha", 'ひ': "hi", 'ふ': "fu", 'へ': "he", 'ほ': "ho",
	'ま': "ma", 'み': "mi", 'む': "mu", 'め': "me", 'も': "mo",
	'や': "ya", 'ゆ': "yu", 'よ': "yo",
	'ら': "ra", 'り': "ri", 'る': "ru", 'れ': "re", 'ろ': "ro",
	'わ': "wa", 'を': "wo", 'ん': "n",
	'が': "ga", 'ぎ': "gi", 'ぐ': "gu", 'げ': "ge", 'ご': "go",
	'ざ': "za", 'じ': "ji", 'ず': "zu", 'ぜ': "ze", 'ぞ': "zo",
	'だ': "da", 'ぢ': "ji", 'づ': "zu", 'で': "de", 'ど': "do",
	'ば': "ba", 'び': "bi", 'ぶ': "bu", 'べ': "be", 'ぼ': "bo",
	'ぱ': "pa", 'ぴ': "pi", 'ぷ': "pu", 'ぺ': "pe", 'ぽ': "po",
	'ー': "",
}

// romanizeKana converts kana text to romaji. Katakana is first shifted
// to hiragana; text containing no kana returns "".
func romanizeKana(s string) string {
	runes := []rune(s)
	hasKana := false
	for i, r := range runes {
		// Katakana block to hiragana.
		if r >= 0x30a1 && r <= 0x30f6 {
			runes[i] = r - 0x60
			r = runes[i]
		}
		if (r >= 0x3041 && r <= 0x3096) || r == 'ー' {
			hasKana = true
		}
	}
	if !hasKana {
		return ""
	}

	var b strings.Builder
	i := 0
	for i < len(runes) {
		if i+1 < len(runes) {
			if ro, ok := kanaRomajiDigraphs[string(runes[i:i+2])]; ok {
				b.WriteString(ro)
				i += 2
				continue
			}
		}
		r := runes[i]
		if r == 'っ' {
			// Sokuon doubles the next consonant.
			if i+1 < len(runes) {
				if next, ok := kanaRomaji[runes[i+1]]; ok && next != "" {
					b.WriteByte(next[0])
				}
			}
			i++
			continue
		}
		if ro, ok := kanaRomaji[r]; ok {
			b.WriteString(ro)
		} else {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}

// unicodeExtra is the additional character block indexed when the
// unicodedataall option is on: common symbols searchable by name.
func unicodeExtra() []Entry {
	symbols := []struct {
		seq  string
		name string
		kws  []string
	}{
		{"—", "em dash", []string{"dash", "em"}},
		{"–", "en dash", []string{"dash", "en"}},
		{"…", "horizontal ellipsis", []string{"ellipsis", "dots"}},
		{"©", "copyright sign", []string{"copyright"}},
		{"®", "registered sign", []string{"registered", "trademark"}},
		{"™", "trade mark sign", []string{"trademark", "tm"}},
		{"°", "degree sign", []string{"degree", "temperature"}},
		{"±", "plus-minus sign", []string{"plus", "minus", "math"}},
		{"×", "multiplication sign", []string{"multiply", "times", "math"}},
		{"÷", "division sign", []string{"divide", "math"}},
		{"€", "euro sign", []string{"euro", "currency"}},
		{"£", "pound sign", []string{"pound", "sterling", "currency"}},
		{"¥", "yen sign", []string{"yen", "currency"}},
		{"§", "section sign", []string{"section", "paragraph"}},
		{"¶", "pilcrow sign", []string{"pilcrow", "paragraph"}},
		{"†", "dagger", []string{"dagger"}},
		{"‰", "per mille sign", []string{"permille", "per", "mille"}},
		{"→", "rightwards arrow", []string{"arrow", "right"}},
		{"←", "leftwards arrow", []string{"arrow", "left"}},
		{"↑", "upwards arrow", []string{"arrow", "up"}},
		{"↓", "downwards arrow", []string{"arrow", "down"}},
		{"⇒", "rightwards double arrow", []string{"arrow", "right", "double", "implies"}},
		{"∞", "infinity", []string{"infinity", "math"}},
		{"≈", "almost equal to", []string{"approximately", "equal", "math"}},
		{"≠", "not equal to", []string{"not", "equal", "math"}},
		{"≤", "less-than or equal to", []string{"less", "equal", "math"}},
		{"≥", "greater-than or equal to", []string{"greater", "equal", "math"}},
		{"√", "square root", []string{"root", "square", "math"}},
		{"∑", "n-ary summation", []string{"sum", "sigma", "math"}},
		{"∆", "increment", []string{"delta", "math"}},
		{"µ", "micro sign", []string{"micro", "mu"}},
		{"·", "middle dot", []string{"dot", "middle", "interpunct"}},
		{"•", "bullet", []string{"bullet", "dot"}},
		{"‽", "interrobang", []string{"interrobang", "question", "exclamation"}},
		{"☃", "snowman", []string{"snowman", "snow", "winter"}},
		{"☺", "white smiling face", []string{"smile", "face"}},
		{"♥", "black heart suit", []string{"heart", "suit", "cards"}},
		{"♦", "black diamond suit", []string{"diamond", "suit", "cards"}},
		{"♠", "black spade suit", []string{"spade", "suit", "cards"}},
		{"♣", "black club suit", []string{"club", "suit", "cards"}},
		{"✓", "check mark", []string{"check", "tick", "yes"}},
		{"✗", "ballot x", []string{"cross", "x", "no"}},
	}
	entries := make([]Entry, len(symbols))
	for i, s := range symbols {
		entries[i] = Entry{
			Sequence: s.seq,
			Names:    map[string][]string{"en": {s.name}},
			Keywords: map[string][]string{"en": s.kws},
			Categories: []string{"Symbols"},
		}
	}
	return entries
}
