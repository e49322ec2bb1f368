package engine

import (
	"strings"
	"unicode"

	"github.com/username/typing-booster/internal/transliteration"
)

// CaseMode cycles how preedit views are capitalized; toggled by a bare
// shift tap.
type CaseMode int

const (
	CaseOriginal CaseMode = iota
	CaseTitle
	CaseUpper
	CaseLower
)

func (m CaseMode) next() CaseMode {
	switch m {
	case CaseOriginal:
		return CaseTitle
	case CaseTitle:
		return CaseUpper
	case CaseUpper:
		return CaseLower
	}
	return CaseOriginal
}

func (m CaseMode) apply(s string) string {
	switch m {
	case CaseTitle:
		runes := []rune(s)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		return string(runes)
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	}
	return s
}

// Preedit is the live token buffer: one token per typed key, with a
// token-granular cursor. Views are pure recomputations over the token
// sequence, so every view shares the token count and cursor.
type Preedit struct {
	keys   []rune
	cursor int
	caseMode CaseMode
}

// Empty reports whether no tokens are buffered.
func (p *Preedit) Empty() bool { return len(p.keys) == 0 }

// Len returns the token count.
func (p *Preedit) Len() int { return len(p.keys) }

// Cursor returns the token-granular cursor index.
func (p *Preedit) Cursor() int { return p.cursor }

// Keys returns a copy of the typed token sequence.
func (p *Preedit) Keys() []rune {
	return append([]rune(nil), p.keys...)
}

// Insert places a token at the cursor.
func (p *Preedit) Insert(key rune) {
	p.keys = append(p.keys, 0)
	copy(p.keys[p.cursor+1:], p.keys[p.cursor:])
	p.keys[p.cursor] = key
	p.cursor++
}

// Backspace removes the token before the cursor. It reports whether a
// token was removed.
func (p *Preedit) Backspace() bool {
	if p.cursor == 0 {
		return false
	}
	p.keys = append(p.keys[:p.cursor-1], p.keys[p.cursor:]...)
	p.cursor--
	return true
}

// Delete removes the token at the cursor. It reports whether a token
// was removed.
func (p *Preedit) Delete() bool {
	if p.cursor >= len(p.keys) {
		return false
	}
	p.keys = append(p.keys[:p.cursor], p.keys[p.cursor+1:]...)
	return true
}

// MoveLeft moves the cursor one token left, reporting whether it
// moved.
func (p *Preedit) MoveLeft() bool {
	if p.cursor == 0 {
		return false
	}
	p.cursor--
	return true
}

// MoveRight moves the cursor one token right, reporting whether it
// moved.
func (p *Preedit) MoveRight() bool {
	if p.cursor >= len(p.keys) {
		return false
	}
	p.cursor++
	return true
}

// Clear drops all tokens, keeping the case mode.
func (p *Preedit) Clear() {
	p.keys = p.keys[:0]
	p.cursor = 0
}

// SetKeys replaces the buffer (reopen-preedit) and puts the cursor at
// the end.
func (p *Preedit) SetKeys(keys []rune) {
	p.keys = append(p.keys[:0], keys...)
	p.cursor = len(p.keys)
}

// CycleCaseMode advances the case mode and returns the new mode.
func (p *Preedit) CycleCaseMode() CaseMode {
	p.caseMode = p.caseMode.next()
	return p.caseMode
}

// ResetCaseMode returns to the as-typed rendering.
func (p *Preedit) ResetCaseMode() { p.caseMode = CaseOriginal }

// Views recomputes every transliteration view with the case mode
// applied.
func (p *Preedit) Views(set *transliteration.Set) []string {
	views := set.Views(p.keys)
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = p.caseMode.apply(v.Text)
	}
	return out
}

// Canonical returns the highest-priority view with case mode applied.
func (p *Preedit) Canonical(set *transliteration.Set) string {
	return p.caseMode.apply(set.Canonical(p.keys))
}

// CanonicalCursor maps the token cursor into a rune offset of the
// canonical string. Transliterations can contract or expand tokens, so
// the mapping recomputes the prefix before the cursor.
func (p *Preedit) CanonicalCursor(set *transliteration.Set) int {
	if p.cursor == len(p.keys) {
		return len([]rune(p.Canonical(set)))
	}
	prefix := set.Canonical(p.keys[:p.cursor])
	return len([]rune(p.caseMode.apply(prefix)))
}
