package compose

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/username/typing-booster/internal/keymap"
)

// Status classifies the outcome of feeding one key to the engine.
type Status int

const (
	// Idle: the key started no sequence and the engine holds no state;
	// the caller handles the key normally.
	Idle Status = iota
	// Live: a sequence is in progress; the key was consumed.
	Live
	// Resolved: the sequence completed; Result carries the string.
	Resolved
	// Rejected: the key cannot extend the sequence and no fallback
	// applied. The key was discarded, the valid prefix is preserved,
	// and the host should beep.
	Rejected
)

// Result is the outcome of Engine.Feed.
type Result struct {
	Status Status
	// Text is the produced string for Resolved.
	Text string
}

// Engine owns the in-progress compose sequence. It is used from the
// event loop only; the shared trie is read through an atomic snapshot.
type Engine struct {
	table  *Table
	prefix []uint32
}

// NewEngine creates an engine reading from table.
func NewEngine(table *Table) *Engine {
	return &Engine{table: table}
}

// InProgress reports whether a sequence is being composed.
func (e *Engine) InProgress() bool {
	return len(e.prefix) > 0
}

// Prefix returns the consumed keysyms of the in-progress sequence.
func (e *Engine) Prefix() []uint32 {
	return append([]uint32(nil), e.prefix...)
}

// PreviewString renders the pending sequence for the preedit, using the
// marks dead keys carry and keysym names otherwise.
func (e *Engine) PreviewString() string {
	var b strings.Builder
	for _, sym := range e.prefix {
		if mark := keymap.DeadKeyCombining(sym); mark != 0 {
			// Render the bare mark on a dotted circle base.
			b.WriteRune('◌')
			b.WriteRune(mark)
			continue
		}
		if sym == keymap.KeyMultiKey {
			b.WriteRune('⎄') // composition symbol
			continue
		}
		b.WriteString(keymap.KeysymName(sym))
	}
	return b.String()
}

// Reset discards any in-progress sequence.
func (e *Engine) Reset() {
	e.prefix = e.prefix[:0]
}

// Wants reports whether the engine would consume this keysym right now:
// either a sequence is in progress, or the key starts one (dead key or
// Multi_key or any other defined sequence head).
func (e *Engine) Wants(keysym uint32) bool {
	if len(e.prefix) > 0 {
		return true
	}
	m, _ := e.table.Load().Lookup([]uint32{keysym})
	return m != NoMatch || keymap.IsDeadKey(keysym)
}

// Feed appends one keysym to the sequence and classifies the result.
func (e *Engine) Feed(keysym uint32) Result {
	trie := e.table.Load()

	if len(e.prefix) == 0 {
		m, _ := trie.Lookup([]uint32{keysym})
		if m == NoMatch && !keymap.IsDeadKey(keysym) {
			return Result{Status: Idle}
		}
	}

	extended := append(append([]uint32(nil), e.prefix...), keysym)
	switch m, result := trie.Lookup(extended); m {
	case Leaf:
		e.Reset()
		return Result{Status: Resolved, Text: result}
	case Prefix:
		e.prefix = extended
		return Result{Status: Live}
	}

	// No continuation in the trie. Try the fallbacks.
	if text, ok := e.deadKeyFallback(extended); ok {
		e.Reset()
		return Result{Status: Resolved, Text: text}
	}
	if res, ok := e.keypadFallback(trie, keysym); ok {
		return res
	}

	// Dead keys stack: an undefined all-dead prefix stays live so a
	// final letter can resolve it through the fallback.
	if keymap.IsDeadKey(keysym) && allDeadKeys(e.prefix) {
		e.prefix = extended
		return Result{Status: Live}
	}

	// Discard only the offending key, keep the valid prefix.
	return Result{Status: Rejected}
}

func allDeadKeys(seq []uint32) bool {
	for _, sym := range seq {
		if !keymap.IsDeadKey(sym) {
			return false
		}
	}
	return true
}

// deadKeyFallback synthesizes a result for a sequence of dead keys
// followed by a letter: the base letter, then the combining marks in
// reverse order, normalized to NFC.
func (e *Engine) deadKeyFallback(seq []uint32) (string, bool) {
	if len(seq) < 2 {
		return "", false
	}
	last := seq[len(seq)-1]
	base := keymap.KeysymToRune(last)
	if base == 0 || !(unicode.Is(unicode.Ll, base) || unicode.Is(unicode.Lu, base)) {
		return "", false
	}
	marks := make([]rune, 0, len(seq)-1)
	for _, sym := range seq[:len(seq)-1] {
		mark := keymap.DeadKeyCombining(sym)
		if mark == 0 {
			return "", false
		}
		marks = append(marks, mark)
	}

	var b strings.Builder
	b.WriteRune(base)
	for i := len(marks) - 1; i >= 0; i-- {
		b.WriteRune(marks[i])
	}
	return norm.NFC.String(b.String()), true
}

// keypadFallback substitutes a keypad keysym for its plain variant (or
// the reverse) and re-attempts the lookup when the original form has no
// continuation but the substituted one does.
func (e *Engine) keypadFallback(trie *Trie, keysym uint32) (Result, bool) {
	alt, ok := keymap.KeypadToPlain(keysym)
	if !ok {
		alt, ok = keymap.PlainToKeypad(keysym)
	}
	if !ok {
		return Result{}, false
	}

	extended := append(append([]uint32(nil), e.prefix...), alt)
	switch m, result := trie.Lookup(extended); m {
	case Leaf:
		e.Reset()
		return Result{Status: Resolved, Text: result}, true
	case Prefix:
		e.prefix = extended
		return Result{Status: Live}, true
	}
	return Result{}, false
}

// Completions enumerates the sequences reachable from the current
// prefix restricted to the keysyms typable on the reported keyboard
// layout.
func (e *Engine) Completions(available map[uint32]bool) []Completion {
	if len(e.prefix) == 0 {
		return nil
	}
	return e.table.Load().Completions(e.prefix, available)
}

// Backspace removes the last consumed keysym from the sequence.
// It reports whether a sequence was in progress.
func (e *Engine) Backspace() bool {
	if len(e.prefix) == 0 {
		return false
	}
	e.prefix = e.prefix[:len(e.prefix)-1]
	return true
}
