// Package emoji holds an in-memory inverted index of emoji and Unicode
// characters keyed on multilingual names and keywords, with fuzzy
// matching.
package emoji

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed data/emoji.json
var emojiData []byte

// Entry is one emoji or symbol, immutable after load.
type Entry struct {
	Sequence   string              `json:"cps"`
	Names      map[string][]string `json:"names"`
	Keywords   map[string][]string `json:"keywords"`
	Categories []string            `json:"categories"`
	Version    string              `json:"version"`
	SkinTones  bool                `json:"skintones"`
}

// Hit is a scored query result.
type Hit struct {
	Entry *Entry
	Score float64
	// Name is the best-matching display name.
	Name string
}

// Options tune index construction.
type Options struct {
	// Languages selects which name/keyword languages join the index;
	// empty means all bundled languages.
	Languages []string
	// Romanize adds romanized forms of Japanese kana names as
	// lower-priority keywords.
	Romanize bool
	// UnicodeDataAll adds the extra block of plain Unicode characters.
	UnicodeDataAll bool
}

// Index is the inverted keyword index. Immutable after NewIndex, so
// reads need no locking.
type Index struct {
	entries []Entry

	// tokens maps a normalized token to the entries containing it.
	// romanized tokens carry a penalty flag.
	tokens map[string][]tokenRef
}

type tokenRef struct {
	entry     int
	name      string  // the display name the token came from
	weight    float64 // 1.0 for names/keywords, lower for romanized forms
	nameToken bool    // token came from a name, not a keyword
}

// NewIndex builds the index from the bundled data.
func NewIndex(opts Options) (*Index, error) {
	var entries []Entry
	if err := json.Unmarshal(emojiData, &entries); err != nil {
		return nil, fmt.Errorf("parse bundled emoji data: %w", err)
	}
	if opts.UnicodeDataAll {
		entries = append(entries, unicodeExtra()...)
	}

	idx := &Index{
		entries: entries,
		tokens:  make(map[string][]tokenRef),
	}

	langWanted := func(lang string) bool {
		if len(opts.Languages) == 0 {
			return true
		}
		for _, l := range opts.Languages {
			if l == lang || strings.HasPrefix(l, lang+"_") || strings.HasPrefix(lang, l+"_") {
				return true
			}
		}
		// English names are always searchable.
		return lang == "en"
	}

	for i := range idx.entries {
		e := &idx.entries[i]
		displayName := e.DisplayName()
		add := func(text, name string, weight float64, fromName bool) {
			for _, tok := range Tokenize(text) {
				idx.tokens[tok] = append(idx.tokens[tok], tokenRef{
					entry:     i,
					name:      name,
					weight:    weight,
					nameToken: fromName,
				})
			}
		}
		for lang, names := range e.Names {
			if !langWanted(lang) {
				continue
			}
			for _, n := range names {
				add(n, n, 1.0, true)
				if opts.Romanize {
					if r := romanizeKana(n); r != "" && r != n {
						add(r, n, romanizedWeight, true)
					}
				}
			}
		}
		for lang, kws := range e.Keywords {
			if !langWanted(lang) {
				continue
			}
			for _, kw := range kws {
				add(kw, displayName, 1.0, false)
				if opts.Romanize {
					if r := romanizeKana(kw); r != "" && r != kw {
						add(r, displayName, romanizedWeight, false)
					}
				}
			}
		}
	}
	return idx, nil
}

// DisplayName returns the English name, falling back to any name.
func (e *Entry) DisplayName() string {
	if names := e.Names["en"]; len(names) > 0 {
		return names[0]
	}
	for _, names := range e.Names {
		if len(names) > 0 {
			return names[0]
		}
	}
	return e.Sequence
}

// Len returns the entry count.
func (idx *Index) Len() int { return len(idx.entries) }

// Tokenize normalizes query and index text: lowercase, split on
// whitespace and underscores, fold diacritics.
func Tokenize(s string) []string {
	folded, _, err := transform.String(transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(unicode.ToLower),
	), s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	})
}

// Query searches the index with every token of q; the candidate set is
// the intersection across tokens and the rank is the sum of per-token
// scores. A 4-6 digit hex query additionally matches that code point.
func (idx *Index) Query(q string, limit int) []Hit {
	tokens := Tokenize(q)
	var hits []Hit
	if len(tokens) > 0 {
		hits = idx.queryTokens(tokens)
	}

	if e, ok := codePointEntry(strings.TrimSpace(q)); ok {
		hits = append(hits, Hit{Entry: e, Score: codePointScore, Name: e.DisplayName()})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.Sequence < hits[j].Entry.Sequence
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

const codePointScore = 5.0

func (idx *Index) queryTokens(tokens []string) []Hit {
	type match struct {
		score float64
		name  string
		count int
	}
	matched := make(map[int]*match)

	for ti, tok := range tokens {
		perEntry := make(map[int]*match)
		for indexTok, refs := range idx.tokens {
			s := scoreToken(tok, indexTok)
			if s <= 0 {
				continue
			}
			for _, ref := range refs {
				s := s * ref.weight
				m := perEntry[ref.entry]
				if m == nil {
					perEntry[ref.entry] = &match{score: s, name: ref.name}
				} else if s > m.score {
					m.score = s
					m.name = ref.name
				}
			}
		}
		if ti == 0 {
			for e, m := range perEntry {
				matched[e] = &match{score: m.score, name: m.name, count: 1}
			}
			continue
		}
		// Intersection: an entry must match every token.
		for e, m := range matched {
			if pm, ok := perEntry[e]; ok {
				m.score += pm.score
				m.count++
			}
		}
		for e, m := range matched {
			if m.count != ti+1 {
				delete(matched, e)
			}
		}
	}

	hits := make([]Hit, 0, len(matched))
	for e, m := range matched {
		hits = append(hits, Hit{Entry: &idx.entries[e], Score: m.score, Name: m.name})
	}
	return hits
}

// codePointEntry interprets q as a 4-6 digit hex code point.
func codePointEntry(q string) (*Entry, bool) {
	if len(q) < 4 || len(q) > 6 {
		return nil, false
	}
	for _, r := range q {
		if !isHexDigit(r) {
			return nil, false
		}
	}
	cp, err := strconv.ParseUint(q, 16, 32)
	if err != nil || cp > unicode.MaxRune || !utf8.ValidRune(rune(cp)) {
		return nil, false
	}
	r := rune(cp)
	if r < 0x20 {
		return nil, false
	}
	name := fmt.Sprintf("U+%04X", cp)
	return &Entry{
		Sequence: string(r),
		Names:    map[string][]string{"en": {name}},
		Version:  "",
	}, true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// Related returns entries sharing at least one keyword or category with
// the entry for seq, scored by overlap count, best first.
func (idx *Index) Related(seq string, limit int) []Hit {
	var base *Entry
	for i := range idx.entries {
		if idx.entries[i].Sequence == seq {
			base = &idx.entries[i]
			break
		}
	}
	if base == nil {
		return nil
	}

	baseKeywords := make(map[string]bool)
	for _, kws := range base.Keywords {
		for _, kw := range kws {
			for _, tok := range Tokenize(kw) {
				baseKeywords[tok] = true
			}
		}
	}
	baseCategories := make(map[string]bool)
	for _, c := range base.Categories {
		baseCategories[c] = true
	}

	var hits []Hit
	for i := range idx.entries {
		e := &idx.entries[i]
		if e.Sequence == seq {
			continue
		}
		overlap := 0
		for _, kws := range e.Keywords {
			for _, kw := range kws {
				for _, tok := range Tokenize(kw) {
					if baseKeywords[tok] {
						overlap++
					}
				}
			}
		}
		for _, c := range e.Categories {
			if baseCategories[c] {
				overlap++
			}
		}
		if overlap > 0 {
			hits = append(hits, Hit{Entry: e, Score: float64(overlap), Name: e.DisplayName()})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.Sequence < hits[j].Entry.Sequence
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Annotation renders the candidate annotation for an entry: code
// points, version, and skin-tone marker.
func (e *Entry) Annotation() string {
	var parts []string
	var cps []string
	for _, r := range e.Sequence {
		cps = append(cps, fmt.Sprintf("U+%04X", r))
	}
	parts = append(parts, strings.Join(cps, " "))
	if e.Version != "" {
		parts = append(parts, "E"+e.Version)
	}
	if e.SkinTones {
		parts = append(parts, "skin tones")
	}
	return strings.Join(parts, " ")
}
