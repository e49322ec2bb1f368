package dictionary

import "sort"

// Suggestion is one spell-correction candidate.
type Suggestion struct {
	Word     string
	Distance int
}

// maxSuggestDistance bounds the edit distance considered a plausible
// correction.
const maxSuggestDistance = 2

// Suggest returns words within Damerau-Levenshtein distance 2 of the
// folded input, closest first. The length band cheaply prunes the scan.
func (d *Dictionary) Suggest(word string, limit int) []Suggestion {
	fw := []rune(Fold(word))
	if len(fw) == 0 {
		return nil
	}

	var out []Suggestion
	for i, folded := range d.folded {
		fr := []rune(folded)
		diff := len(fr) - len(fw)
		if diff < -maxSuggestDistance || diff > maxSuggestDistance {
			continue
		}
		dist := boundedDamerau(fw, fr, maxSuggestDistance)
		if dist < 0 || dist == 0 {
			// Distance 0 is the word itself, not a correction.
			continue
		}
		out = append(out, Suggestion{Word: d.words[i], Distance: dist})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].Word < out[b].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// boundedDamerau computes the Damerau-Levenshtein distance between a
// and b (with adjacent transposition), returning -1 as soon as the
// distance provably exceeds bound.
func boundedDamerau(a, b []rune, bound int) int {
	la, lb := len(a), len(b)
	if la == 0 {
		if lb > bound {
			return -1
		}
		return lb
	}
	if lb == 0 {
		if la > bound {
			return -1
		}
		return la
	}

	// Three rolling rows for the transposition term.
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			v := min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prev2[j-2] + 1; t < v {
					v = t
				}
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > bound {
			return -1
		}
		prev2, prev, cur = prev, cur, prev2
	}
	if prev[lb] > bound {
		return -1
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
