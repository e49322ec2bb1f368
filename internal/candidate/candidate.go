// Package candidate merges and ranks completion candidates from the
// user store, dictionaries, the emoji index and compose completions.
package candidate

import "sort"

// Source tags where a candidate came from.
type Source string

const (
	SourceUserDB     Source = "user_db"
	SourceDictionary Source = "dictionary"
	SourceSpellcheck Source = "spellcheck"
	SourceEmoji      Source = "emoji"
	SourceRelated    Source = "related"
	SourceCompose    Source = "compose_completion"
)

// sourcePriority orders sources for tie-breaking and duplicate merging;
// lower is better.
var sourcePriority = map[Source]int{
	SourceUserDB:     0,
	SourceDictionary: 1,
	SourceSpellcheck: 2,
	SourceEmoji:      3,
	SourceRelated:    3,
	SourceCompose:    4,
}

// Candidate is one ranked suggestion.
type Candidate struct {
	Text       string
	Source     Source
	Score      float64
	Annotation string
}

// priority returns the merge priority of c's source.
func (c Candidate) priority() int {
	if p, ok := sourcePriority[c.Source]; ok {
		return p
	}
	return len(sourcePriority)
}

// Merge de-duplicates candidates by text, keeping the highest score and
// the best-ranked source, then sorts by score descending with
// source-priority and lexicographic tie-breaks.
func Merge(cands []Candidate) []Candidate {
	byText := make(map[string]int, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		i, seen := byText[c.Text]
		if !seen {
			byText[c.Text] = len(out)
			out = append(out, c)
			continue
		}
		if c.Score > out[i].Score {
			out[i].Score = c.Score
		}
		if c.priority() < out[i].priority() {
			out[i].Source = c.Source
			if c.Annotation != "" {
				out[i].Annotation = c.Annotation
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if pi, pj := out[i].priority(), out[j].priority(); pi != pj {
			return pi < pj
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// Page slices one page out of the ranked list.
func Page(cands []Candidate, page, pageSize int) []Candidate {
	if pageSize <= 0 {
		return cands
	}
	start := page * pageSize
	if start >= len(cands) {
		return nil
	}
	end := start + pageSize
	if end > len(cands) {
		end = len(cands)
	}
	return cands[start:end]
}

// PageCount returns how many pages the list spans.
func PageCount(n, pageSize int) int {
	if pageSize <= 0 || n == 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}
