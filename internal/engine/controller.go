package engine

import (
	"strings"
	"time"
	"unicode"

	"github.com/username/typing-booster/internal/candidate"
	"github.com/username/typing-booster/internal/compose"
	"github.com/username/typing-booster/internal/config"
	"github.com/username/typing-booster/internal/keymap"
)

// handleKey is the Empty/Editing state machine entry point. The return
// value is what the host sees: false means the key is not consumed and
// the host delivers it to the application.
func (e *Engine) handleKey(ev keymap.KeyEvent) bool {
	if !e.enabled {
		return false
	}
	if ev.IsForwarded {
		// Keys we forwarded ourselves must not loop back in.
		return false
	}

	cmds := e.km.Translate(ev, keymap.State{
		ListVisible:    e.lookupVisible,
		PreeditVisible: !e.preedit.Empty() || e.composer.InProgress(),
	})

	if ev.IsRelease {
		for _, cmd := range cmds {
			if cmd == keymap.CmdToggleCaseMode && !e.preedit.Empty() {
				e.preedit.CycleCaseMode()
				e.refreshPreedit()
				e.scheduleCandidates()
				return true
			}
		}
		return false
	}

	if keymap.IsModifierKey(ev.Keyval) {
		return false
	}

	for _, cmd := range cmds {
		if handled, done := e.handleCommand(cmd, ev); done {
			return handled
		}
	}

	if !e.inputMode {
		return false
	}

	// Control/Alt chords that reached here are not ours: commit what we
	// have and let the application see the chord.
	if ev.Modifiers&(keymap.ModControl|keymap.ModMod1) != 0 {
		if !e.preedit.Empty() {
			text := e.preedit.Canonical(e.translit)
			e.commit(text, text)
		}
		return false
	}

	return e.handleInsert(ev)
}

// handleCommand executes one bound command. done=false passes the key
// on to the insert path (the command did not apply in this state).
func (e *Engine) handleCommand(cmd keymap.Command, ev keymap.KeyEvent) (handled, done bool) {
	switch cmd {
	case keymap.CmdCommitPreedit:
		if e.composer.InProgress() {
			// The compose sequence decides what a space means.
			return false, false
		}
		if e.preedit.Empty() {
			return false, true
		}
		e.commitChosen(" ")
		return true, true

	case keymap.CmdCancel:
		return e.handleCancel()

	case keymap.CmdSelectNext:
		if !e.lookupVisible {
			return false, false
		}
		e.moveSelection(1)
		return true, true

	case keymap.CmdSelectPrevious:
		if !e.lookupVisible {
			return false, false
		}
		e.moveSelection(-1)
		return true, true

	case keymap.CmdPageDown:
		if !e.lookupVisible {
			return false, false
		}
		e.movePage(1)
		return true, true

	case keymap.CmdPageUp:
		if !e.lookupVisible {
			return false, false
		}
		e.movePage(-1)
		return true, true

	case keymap.CmdEnableLookup:
		if e.preedit.Empty() && !e.composer.InProgress() {
			return false, true
		}
		if !e.cfg.TabEnable && !e.composer.InProgress() {
			return false, false
		}
		e.requestCandidatesNow()
		e.lookupVisible = true
		e.refreshCandidates()
		return true, true

	case keymap.CmdToggleEmoji:
		e.cfg = toggledEmoji(e.cfg)
		e.scheduleCandidates()
		return true, true

	case keymap.CmdToggleOffTheRecord:
		otr := !e.db.OffTheRecord()
		e.db.SetOffTheRecord(otr)
		e.host.UpdateProperty(Property{Key: PropOffTheRecord, State: otr})
		return true, true

	case keymap.CmdLookupRelated:
		return e.handleRelated()

	case keymap.CmdToggleInputMode:
		e.inputMode = !e.inputMode
		if !e.inputMode {
			e.clearAll()
		}
		e.host.UpdateProperty(Property{Key: PropInputMode, State: e.inputMode})
		return true, true

	case keymap.CmdNextInputMethod:
		e.rotateInputMethods(1)
		return true, true

	case keymap.CmdPreviousInputMethod:
		e.rotateInputMethods(-1)
		return true, true

	case keymap.CmdCursorLeft:
		return e.handleCursor(-1, ev)

	case keymap.CmdCursorRight:
		return e.handleCursor(1, ev)
	}

	if idx := keymap.CommitCandidateIndex(cmd); idx >= 0 {
		if !e.lookupVisible {
			return false, false
		}
		page := candidate.Page(e.candidates, e.page, e.cfg.PageSize)
		if idx >= len(page) {
			return true, true
		}
		e.commitCandidate(page[idx], "")
		return true, true
	}
	return false, false
}

// handleInsert is the insert_raw path: compose first, then the preedit.
func (e *Engine) handleInsert(ev keymap.KeyEvent) bool {
	switch ev.Keyval {
	case keymap.KeyBackspace:
		return e.handleBackspace()
	case keymap.KeyDelete:
		if e.preedit.Empty() {
			return false
		}
		if e.preedit.Delete() {
			e.afterPreeditEdit()
		}
		return true
	case keymap.KeyReturn, keymap.KeyKPEnter:
		if e.preedit.Empty() && !e.composer.InProgress() {
			return false
		}
		// Commit and let the application receive the Enter itself.
		text := e.chosenText()
		e.commit(text, text)
		return false
	case keymap.KeyEscape:
		handled, _ := e.handleCancel()
		return handled
	case keymap.KeyLeft, keymap.KeyRight, keymap.KeyUp, keymap.KeyDown,
		keymap.KeyHome, keymap.KeyEnd, keymap.KeyPgUp, keymap.KeyPgDn:
		// Unbound navigation with no preedit may reopen a committed
		// word; with a preedit it was already handled as a command.
		if e.preedit.Empty() && e.cfg.ArrowKeysReopenPreedit &&
			(ev.Keyval == keymap.KeyLeft || ev.Keyval == keymap.KeyRight) {
			if e.reopenPreedit() {
				return true
			}
		}
		if !e.preedit.Empty() {
			text := e.preedit.Canonical(e.translit)
			e.commit(text, text)
		}
		return false
	}

	// The compose engine gets first claim on the key.
	if e.composer.InProgress() || e.composer.Wants(ev.Keyval) {
		return e.handleCompose(ev)
	}

	char := keymap.KeysymToRune(ev.Keyval)
	if char == 0 {
		// Unknown keysym with a preedit active: keep state, no-op.
		return !e.preedit.Empty()
	}

	// Auto-commit characters close the word and carry the character
	// plus a space into the document.
	if !e.preedit.Empty() && strings.ContainsRune(e.cfg.AutoCommitCharacters, char) {
		word := e.preedit.Canonical(e.translit)
		e.commit(word+string(char)+" ", word)
		return true
	}

	if e.preedit.Empty() {
		e.beginSession(char)
	}
	e.preedit.Insert(char)
	e.afterPreeditEdit()
	return true
}

// beginSession applies session-start behavior for the first token:
// auto-capitalize after a sentence terminator in context.
func (e *Engine) beginSession(first rune) {
	e.preedit.ResetCaseMode()
	if !e.cfg.AutoCapitalize {
		return
	}
	ctx := strings.TrimRight(e.context1, " ")
	if ctx == "" {
		return
	}
	last, _ := utf8DecodeLast(ctx)
	if last == '.' || last == '!' || last == '?' {
		if unicode.IsLower(first) {
			e.preedit.CycleCaseMode() // Original -> Title
		}
	}
}

func utf8DecodeLast(s string) (rune, int) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, 0
	}
	return runes[len(runes)-1], len(runes)
}

// handleCompose feeds one key into the compose engine.
func (e *Engine) handleCompose(ev keymap.KeyEvent) bool {
	res := e.composer.Feed(ev.Keyval)
	switch res.Status {
	case compose.Idle:
		return false
	case compose.Live:
		e.refreshPreedit()
		if e.lookupVisible {
			e.requestCandidatesNow()
		}
		return true
	case compose.Resolved:
		e.insertResolved(res.Text)
		return true
	case compose.Rejected:
		// Keep the valid prefix visible; the discarded key makes no
		// change. The host's bell, if any, is its own affair.
		e.refreshPreedit()
		return true
	}
	return false
}

// insertResolved places a resolved compose result: committed directly
// from an empty preedit, inserted as tokens otherwise.
func (e *Engine) insertResolved(text string) {
	if e.preedit.Empty() {
		e.commit(text, text)
		return
	}
	for _, r := range text {
		e.preedit.Insert(r)
	}
	e.afterPreeditEdit()
}

func (e *Engine) handleBackspace() bool {
	if e.composer.Backspace() {
		e.refreshPreedit()
		return true
	}
	if e.preedit.Empty() {
		return false
	}
	e.preedit.Backspace()
	e.afterPreeditEdit()
	return true
}

// handleCancel clears the selection first, then the preedit.
func (e *Engine) handleCancel() (bool, bool) {
	if e.composer.InProgress() {
		e.composer.Reset()
		e.refreshPreedit()
		return true, true
	}
	if e.selected >= 0 {
		e.selected = -1
		e.refreshCandidates()
		return true, true
	}
	if !e.preedit.Empty() {
		e.clearAll()
		return true, true
	}
	return false, true
}

// handleCursor moves the preedit cursor token-wise. At either edge of
// the preedit the key is consumed and nothing changes: the preedit is
// not committed and the key is not forwarded to the host.
func (e *Engine) handleCursor(dir int, ev keymap.KeyEvent) (bool, bool) {
	if e.preedit.Empty() {
		return false, false
	}
	moved := false
	if dir < 0 {
		moved = e.preedit.MoveLeft()
	} else {
		moved = e.preedit.MoveRight()
	}
	if !moved {
		// At the edge: a handled no-op.
		return true, true
	}
	e.afterPreeditEdit()
	return true, true
}

func (e *Engine) handleRelated() (bool, bool) {
	var seq string
	switch {
	case e.selected >= 0 && e.selected < len(e.candidates):
		seq = e.candidates[e.selected].Text
	case len(e.commitLog) > 0:
		seq = e.commitLog[len(e.commitLog)-1]
	default:
		return false, true
	}
	related := e.producer.Related(seq, e.cfg.PageSize*3)
	if len(related) == 0 {
		return true, true
	}
	e.candidates = related
	e.page = 0
	e.selected = -1
	e.lookupVisible = true
	e.refreshCandidates()
	return true, true
}

// rotateInputMethods cycles the priority order of the configured input
// methods; the canonical view follows the new head.
func (e *Engine) rotateInputMethods(dir int) {
	names := e.translit.Names()
	if len(names) < 2 {
		return
	}
	if dir > 0 {
		names = append(names[1:], names[0])
	} else {
		names = append([]string{names[len(names)-1]}, names[:len(names)-1]...)
	}
	e.translit = rebuildSet(names, e)
	e.afterPreeditEdit()
	e.host.UpdateAuxiliary(names[0], !e.preedit.Empty())
}

// --- commit paths ---

// chosenText is the text a commit command would deliver: the selected
// candidate if any, else the canonical preedit.
func (e *Engine) chosenText() string {
	if e.selected >= 0 && e.selected < len(e.candidates) {
		return e.candidates[e.selected].Text
	}
	return e.preedit.Canonical(e.translit)
}

// commitChosen commits the chosen text plus a suffix (the space of
// commit_preedit).
func (e *Engine) commitChosen(suffix string) {
	text := e.chosenText()
	if text == "" && suffix == "" {
		e.clearAll()
		return
	}
	e.commit(text+suffix, text)
}

func (e *Engine) commitCandidate(c candidate.Candidate, suffix string) {
	e.commit(c.Text+suffix, c.Text)
}

// commit is the single commit path: host commit, user store update,
// context shift, state reset. text goes to the document verbatim;
// phrase is what the learning store records (empty disables
// recording). The context window shifts on every commit.
func (e *Engine) commit(text, phrase string) {
	if text == "" {
		e.clearAll()
		return
	}
	if err := e.host.CommitText(text); err != nil {
		e.logger.Warn("commit failed", "error", err)
		// The preedit is preserved: the user can retry.
		return
	}

	if phrase != "" {
		e.db.RecordCommit(phrase, e.context1, e.context2)
	}
	shifted := strings.TrimRight(text, " ")
	if shifted != "" {
		e.context2 = e.context1
		e.context1 = shifted
		e.commitsThisFocus++
		e.commitLog = append(e.commitLog, shifted)
		if len(e.commitLog) > 16 {
			e.commitLog = e.commitLog[1:]
		}
	}
	e.clearAll()
}

// clearAll resets preedit, compose and candidate state and hides the
// host surfaces.
func (e *Engine) clearAll() {
	e.preedit.Clear()
	e.preedit.ResetCaseMode()
	e.composer.Reset()
	e.candidates = nil
	e.selected = -1
	e.page = 0
	e.lookupVisible = false
	e.inlineText = ""
	e.latestJob++ // orphan any in-flight job
	e.jobPending = false
	e.hideBusy()
	e.host.UpdatePreedit("", 0, false, nil)
	e.host.UpdateCandidates(nil, 0, false)
	e.host.UpdateAuxiliary("", false)
}

// --- candidate production and display ---

// afterPreeditEdit refreshes views and schedules candidate production
// after any token mutation.
func (e *Engine) afterPreeditEdit() {
	if e.preedit.Empty() && !e.composer.InProgress() {
		e.clearAll()
		return
	}
	e.refreshPreedit()
	e.scheduleCandidates()
}

// scheduleCandidates debounces production: the job id advances
// immediately, invalidating any in-flight job, and the timer fires into
// the loop.
func (e *Engine) scheduleCandidates() {
	e.latestJob++
	job := e.latestJob
	canonical := e.preedit.Canonical(e.translit)
	if len([]rune(canonical)) < e.cfg.MinCharComplete && !e.composer.InProgress() {
		e.candidates = nil
		e.refreshCandidates()
		return
	}

	delay := time.Duration(e.cfg.CandidatesDelayMillis) * time.Millisecond
	if delay == 0 {
		e.handleDebounce(job)
		return
	}
	time.AfterFunc(delay, func() { e.post(debounceMsg{job: job}) })
}

// requestCandidatesNow skips the debounce (lookup explicitly enabled).
func (e *Engine) requestCandidatesNow() {
	e.latestJob++
	e.handleDebounce(e.latestJob)
}

func (e *Engine) handleDebounce(job uint64) {
	if job != e.latestJob {
		return // a newer keystroke replaced this job
	}
	req := candidate.Request{
		JobID:        job,
		PrefixViews:  e.preedit.Views(e.translit),
		Context1:     e.context1,
		Context2:     e.context2,
		EmojiMode:    e.cfg.EmojiPredictions,
		TriggerChars: e.cfg.EmojiTriggerChars,
		PageSize:     e.cfg.PageSize,
	}
	if e.composer.InProgress() {
		req.ComposePrefix = e.composer.Prefix()
		req.AvailableKeysyms = e.availableKeysyms
	}
	e.submitJob(req)
}

func (e *Engine) handleCandidateResult(res candidate.Result) {
	if res.JobID != e.latestJob {
		return // stale: a newer key event owns the list now
	}
	e.jobPending = false
	e.hideBusy()
	e.candidates = res.Candidates
	e.page = 0
	if e.cfg.AutoSelectCandidate > 0 && len(e.candidates) > 0 {
		e.selected = 0
	} else {
		e.selected = -1
	}
	e.updateInline()
	e.refreshCandidates()
}

func (e *Engine) handleBusy(job uint64) {
	if job != e.latestJob || !e.jobPending {
		return
	}
	e.busyShown = true
	e.host.UpdateAuxiliary("…", true)
}

func (e *Engine) hideBusy() {
	if e.busyShown {
		e.busyShown = false
		e.host.UpdateAuxiliary("", false)
	}
}

// updateInline computes the inline suggestion when the mode is on and
// no explicit lookup is showing.
func (e *Engine) updateInline() {
	e.inlineText = ""
	if e.cfg.InlineCompletion == 0 || e.lookupVisible {
		return
	}
	prefix := e.preedit.Canonical(e.translit)
	if text, ok := candidate.Inline(e.candidates, prefix, inlineThreshold); ok {
		e.inlineText = text
	}
}

// inlineThreshold is the confidence floor for inline completion:
// learned entries qualify, bare dictionary completions do not.
const inlineThreshold = 50.0

// moveSelection moves the absolute selection within the current page,
// wrapping at the page edges.
func (e *Engine) moveSelection(dir int) {
	page := candidate.Page(e.candidates, e.page, e.cfg.PageSize)
	if len(page) == 0 {
		return
	}
	base := e.page * e.cfg.PageSize
	rel := e.selected - base
	if rel < 0 || rel >= len(page) {
		if dir > 0 {
			rel = 0
		} else {
			rel = len(page) - 1
		}
	} else {
		rel = (rel + dir + len(page)) % len(page)
	}
	e.selected = base + rel
	e.refreshCandidates()
}

func (e *Engine) movePage(dir int) {
	pages := candidate.PageCount(len(e.candidates), e.cfg.PageSize)
	next := e.page + dir
	if next < 0 || next >= pages {
		return
	}
	e.page = next
	e.selected = -1
	e.refreshCandidates()
}

// --- host surface refresh ---

func (e *Engine) refreshPreedit() {
	text := e.preedit.Canonical(e.translit)
	cursor := e.preedit.CanonicalCursor(e.translit)
	var styles []StyleRun

	if e.composer.InProgress() {
		preview := e.composer.PreviewString()
		at := len(text)
		text += preview
		styles = append(styles, StyleRun{Start: at, End: len(text), Style: StyleComposing})
		cursor = len([]rune(text))
	} else if text != "" {
		styles = append(styles, StyleRun{Start: 0, End: len(text), Style: StyleUnderline})
	}

	if e.inlineText != "" && strings.HasPrefix(e.inlineText, text) && len(e.inlineText) > len(text) {
		suffix := e.inlineText[len(text):]
		at := len(text)
		text += suffix
		styles = append(styles, StyleRun{Start: at, End: len(text), Style: StyleInline})
	}

	e.host.UpdatePreedit(text, cursor, text != "", styles)
}

func (e *Engine) refreshCandidates() {
	e.updateInline()
	if e.inlineText != "" {
		// Inline mode: the list stays hidden until explicitly enabled.
		e.host.UpdateCandidates(nil, 0, false)
		e.refreshPreedit()
		return
	}
	visible := e.lookupVisible || (len(e.candidates) > 0 && !e.cfg.TabEnable)
	if visible && len(e.candidates) > 0 {
		e.lookupVisible = true
	}
	page := candidate.Page(e.candidates, e.page, e.cfg.PageSize)
	if len(page) == 0 {
		e.lookupVisible = false
		e.host.UpdateCandidates(nil, 0, false)
		return
	}
	rel := e.selected - e.page*e.cfg.PageSize
	if rel < 0 || rel >= len(page) {
		rel = -1
	}
	e.host.UpdateCandidates(page, rel, visible)
	e.refreshPreedit()
}

// toggledEmoji returns a config copy with emoji predictions flipped.
// The copy keeps the derived snapshot semantics: the base store is
// untouched.
func toggledEmoji(cfg *config.Config) *config.Config {
	c := *cfg
	c.EmojiPredictions = !c.EmojiPredictions
	return &c
}
