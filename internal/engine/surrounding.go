package engine

import (
	"strings"
	"unicode"

	"github.com/username/typing-booster/internal/transliteration"
)

// terminalClientHints identify client ids whose surrounding text and
// reopen behavior cannot be trusted (terminals echo, password fields
// lie).
var terminalClientHints = []string{
	"terminal", "xterm", "konsole", "rxvt", "alacritty", "kitty", "password",
}

func isTerminalClient(clientID string) bool {
	id := strings.ToLower(clientID)
	for _, hint := range terminalClientHints {
		if strings.Contains(id, hint) {
			return true
		}
	}
	return false
}

// handleFocusIn starts a focus session: autosettings apply, context
// clears, properties register.
func (e *Engine) handleFocusIn(clientID string) {
	e.clearAll()
	e.clientID = clientID
	e.focused = true
	e.commitsThisFocus = 0
	e.commitLog = e.commitLog[:0]
	e.context1, e.context2 = "", ""
	e.surroundingTrusted = false

	// Re-derive the per-client snapshot from the published base.
	e.reconfigure(e.cfgStore.Current())

	if e.cfg.DisableInTerminals && isTerminalClient(clientID) {
		e.inputMode = false
	}

	e.host.RegisterProperties([]Property{
		{Key: PropInputMode, Label: "Input mode", State: e.inputMode},
		{Key: PropOffTheRecord, Label: "Off the record", State: e.db.OffTheRecord()},
	})
	if e.db.Quarantined() {
		// One-shot notice: the previous learning store was corrupt and
		// was set aside.
		e.host.UpdateProperty(Property{
			Key:   PropNotice,
			Label: "User dictionary was corrupt and has been reset",
			State: true,
		})
	}
}

func (e *Engine) handleFocusOut() {
	// Focus loss discards the provisional preedit; committed text is
	// already in the document.
	e.clearAll()
	e.focused = false
	e.clientID = ""
	e.surroundingTrusted = false
}

// handleSurrounding records the host-reported text around the cursor
// and judges whether it is consistent with what the engine committed.
// Context is invalidated when the text contradicts expectation.
func (e *Engine) handleSurrounding(text string, cursor, anchor int) {
	e.surroundingText = text
	e.surroundingCursor = cursor

	if e.commitsThisFocus == 0 {
		// Nothing of ours to verify yet; trust stays off until the
		// first commit round-trips.
		e.surroundingTrusted = false
		return
	}

	before := surroundingBefore(text, cursor)
	expected := strings.TrimRight(e.context1, " ")
	if expected == "" {
		e.surroundingTrusted = false
		return
	}
	trimmed := strings.TrimRight(before, " ")
	if strings.HasSuffix(trimmed, expected) {
		e.surroundingTrusted = true
		return
	}

	// The document does not end with what we last committed: a cursor
	// jump or external edit happened. Clear the prediction context and
	// distrust reopen until the picture is consistent again.
	e.context1, e.context2 = "", ""
	e.surroundingTrusted = false
}

func surroundingBefore(text string, cursor int) string {
	runes := []rune(text)
	if cursor < 0 || cursor > len(runes) {
		return ""
	}
	return string(runes[:cursor])
}

// reopenPreedit pulls the committed word touching the cursor back into
// the preedit, deleting it from the document first. It refuses on any
// unreliable signal: no commits this session, untrusted surrounding
// text, or an ignored client class.
func (e *Engine) reopenPreedit() bool {
	if !e.preedit.Empty() || !e.focused {
		return false
	}
	if e.commitsThisFocus == 0 || !e.surroundingTrusted {
		return false
	}
	if e.cfg.DisableInTerminals && isTerminalClient(e.clientID) {
		return false
	}

	before := surroundingBefore(e.surroundingText, e.surroundingCursor)
	trimmedSpaces := 0
	for strings.HasSuffix(before, " ") {
		before = before[:len(before)-1]
		trimmedSpaces++
	}
	if trimmedSpaces > 1 || before == "" {
		// More than one space back, or nothing there: the cursor is
		// not touching a word we can take responsibility for.
		return false
	}

	word := lastWord(before)
	if word == "" {
		return false
	}

	// Conservatism: only reopen words this session actually produced.
	known := false
	for _, c := range e.commitLog {
		if c == word {
			known = true
			break
		}
	}
	if !known {
		return false
	}

	n := len([]rune(word)) + trimmedSpaces
	if err := e.host.DeleteSurroundingText(-n, n); err != nil {
		e.logger.Warn("delete surrounding failed", "error", err)
		return false
	}
	e.preedit.SetKeys([]rune(word))
	e.afterPreeditEdit()
	return true
}

func lastWord(s string) string {
	end := len(s)
	i := end
	for i > 0 {
		r, size := decodeLastRune(s[:i])
		if unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	return s[i:end]
}

func decodeLastRune(s string) (rune, int) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, 0
	}
	r := runes[len(runes)-1]
	return r, len(string(r))
}

// handleProperty reacts to host-side property toggles.
func (e *Engine) handleProperty(name string, state bool) {
	switch name {
	case PropInputMode:
		e.inputMode = state
		if !state {
			e.clearAll()
		}
	case PropOffTheRecord:
		e.db.SetOffTheRecord(state)
	}
	e.host.UpdateProperty(Property{Key: name, State: state})
}

// rebuildSet recreates the transliteration set for a rotated method
// order.
func rebuildSet(names []string, e *Engine) *transliteration.Set {
	return transliteration.NewSet(names, e.logger)
}
