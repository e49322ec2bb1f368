// Package engine owns the live preedit and drives the key-event
// pipeline: keymap translation, compose handling, transliteration
// views, candidate production and commits to the host.
package engine

import (
	"github.com/username/typing-booster/internal/candidate"
	"github.com/username/typing-booster/internal/keymap"
)

// StyleRun marks a byte range of the preedit for host rendering.
type StyleRun struct {
	Start, End int
	Style      Style
}

// Style is a preedit text attribute.
type Style int

const (
	// StyleUnderline is the normal preedit decoration.
	StyleUnderline Style = iota
	// StyleComposing marks a pending compose sequence so it renders
	// distinguishably.
	StyleComposing
	// StyleInline marks the inline-completion suffix.
	StyleInline
)

// Property is a host-side indicator (input mode, off-the-record) the
// engine registers and toggles.
type Property struct {
	Key   string
	Label string
	State bool
}

// Host is the abstract input-method surface the engine talks back
// through. cmd/daemon implements it over D-Bus; tests implement it
// in-process.
type Host interface {
	CommitText(text string) error
	UpdatePreedit(text string, cursor int, visible bool, styles []StyleRun) error
	UpdateCandidates(cands []candidate.Candidate, cursor int, visible bool) error
	UpdateAuxiliary(text string, visible bool) error
	ForwardKeyEvent(ev keymap.KeyEvent) error
	DeleteSurroundingText(offset, nchars int) error
	RegisterProperties(props []Property) error
	UpdateProperty(prop Property) error
}
