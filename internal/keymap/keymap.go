package keymap

import (
	"errors"
	"fmt"
	"strings"
)

// Command identifies a semantic action triggered by a key binding.
type Command string

// All recognized commands. Any command may be bound to an empty set of
// key combinations, which disables it.
const (
	CmdInsertRaw           Command = "insert_raw"
	CmdBackspace           Command = "backspace"
	CmdDelete              Command = "delete"
	CmdCursorLeft          Command = "cursor_left"
	CmdCursorRight         Command = "cursor_right"
	CmdCommitPreedit       Command = "commit_preedit"
	CmdCommitCandidate1    Command = "commit_candidate_1"
	CmdCommitCandidate2    Command = "commit_candidate_2"
	CmdCommitCandidate3    Command = "commit_candidate_3"
	CmdCommitCandidate4    Command = "commit_candidate_4"
	CmdCommitCandidate5    Command = "commit_candidate_5"
	CmdCommitCandidate6    Command = "commit_candidate_6"
	CmdCommitCandidate7    Command = "commit_candidate_7"
	CmdCommitCandidate8    Command = "commit_candidate_8"
	CmdCommitCandidate9    Command = "commit_candidate_9"
	CmdCancel              Command = "cancel"
	CmdSelectNext          Command = "select_next_candidate"
	CmdSelectPrevious      Command = "select_previous_candidate"
	CmdPageUp              Command = "page_up"
	CmdPageDown            Command = "page_down"
	CmdEnableLookup        Command = "enable_lookup"
	CmdToggleEmoji         Command = "toggle_emoji"
	CmdToggleOffTheRecord  Command = "toggle_off_the_record"
	CmdLookupRelated       Command = "lookup_related"
	CmdToggleInputMode     Command = "toggle_input_mode"
	CmdNextInputMethod     Command = "next_input_method"
	CmdPreviousInputMethod Command = "previous_input_method"
	CmdToggleCaseMode      Command = "toggle_case_mode"
)

// commitCandidateCommands indexed by candidate number 1..9.
var commitCandidateCommands = [...]Command{
	CmdCommitCandidate1, CmdCommitCandidate2, CmdCommitCandidate3,
	CmdCommitCandidate4, CmdCommitCandidate5, CmdCommitCandidate6,
	CmdCommitCandidate7, CmdCommitCandidate8, CmdCommitCandidate9,
}

// CommitCandidateCommand returns the commit command for candidate number
// n (1-based), or "" when n is out of range.
func CommitCandidateCommand(n int) Command {
	if n < 1 || n > len(commitCandidateCommands) {
		return ""
	}
	return commitCandidateCommands[n-1]
}

// CommitCandidateIndex returns the 0-based candidate index for a commit
// command, or -1 when cmd is not a commit-candidate command.
func CommitCandidateIndex(cmd Command) int {
	for i, c := range commitCandidateCommands {
		if c == cmd {
			return i
		}
	}
	return -1
}

// KnownCommands lists every command the keybinding configuration may
// reference, in a stable order.
var KnownCommands = []Command{
	CmdCommitPreedit,
	CmdCursorLeft, CmdCursorRight,
	CmdCommitCandidate1, CmdCommitCandidate2, CmdCommitCandidate3,
	CmdCommitCandidate4, CmdCommitCandidate5, CmdCommitCandidate6,
	CmdCommitCandidate7, CmdCommitCandidate8, CmdCommitCandidate9,
	CmdCancel,
	CmdSelectNext, CmdSelectPrevious,
	CmdPageUp, CmdPageDown,
	CmdEnableLookup,
	CmdToggleEmoji, CmdToggleOffTheRecord,
	CmdLookupRelated,
	CmdToggleInputMode,
	CmdNextInputMethod, CmdPreviousInputMethod,
	CmdToggleCaseMode,
}

// ErrInvalidBinding reports a key combination referencing a keysym name
// unknown to the current keymap. The binding is ignored, not fatal.
var ErrInvalidBinding = errors.New("invalid key binding")

// Combo is a single key combination: one keysym plus required modifiers.
type Combo struct {
	Keysym    uint32
	Modifiers uint32
}

// ParseCombo parses a combination string such as "Control+period",
// "Shift+Tab" or "F6".
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	var combo Combo
	for i, part := range parts {
		if i < len(parts)-1 {
			switch part {
			case "Shift":
				combo.Modifiers |= ModShift
			case "Control", "Ctrl":
				combo.Modifiers |= ModControl
			case "Alt", "Mod1":
				combo.Modifiers |= ModMod1
			case "Super", "Mod4":
				combo.Modifiers |= ModMod4
			default:
				return Combo{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidBinding, part, s)
			}
			continue
		}
		sym, ok := KeysymByName(part)
		if !ok {
			return Combo{}, fmt.Errorf("%w: unknown keysym %q in %q", ErrInvalidBinding, part, s)
		}
		combo.Keysym = sym
	}
	if combo.Keysym == 0 {
		return Combo{}, fmt.Errorf("%w: empty combination %q", ErrInvalidBinding, s)
	}
	return combo, nil
}

// KeyMap holds the parsed keybinding table.
type KeyMap struct {
	bindings map[Combo][]Command

	// shift tap detection: keysym of the last pressed key, used to pair
	// a shift release with its press.
	lastPressed uint32
}

// DefaultBindings is the built-in keybinding table, as combination
// strings per command.
var DefaultBindings = map[Command][]string{
	CmdCommitPreedit:       {"space"},
	CmdCursorLeft:          {"Left"},
	CmdCursorRight:         {"Right"},
	CmdCommitCandidate1:    {"1", "KP_1"},
	CmdCommitCandidate2:    {"2", "KP_2"},
	CmdCommitCandidate3:    {"3", "KP_3"},
	CmdCommitCandidate4:    {"4", "KP_4"},
	CmdCommitCandidate5:    {"5", "KP_5"},
	CmdCommitCandidate6:    {"6", "KP_6"},
	CmdCommitCandidate7:    {"7", "KP_7"},
	CmdCommitCandidate8:    {"8", "KP_8"},
	CmdCommitCandidate9:    {"9", "KP_9"},
	CmdCancel:              {"Escape"},
	CmdSelectNext:          {"Tab", "Down"},
	CmdSelectPrevious:      {"Shift+Tab", "Up"},
	CmdPageUp:              {"Page_Up"},
	CmdPageDown:            {"Page_Down"},
	CmdEnableLookup:        {"Tab"},
	CmdToggleEmoji:         {"Control+F6"},
	CmdToggleOffTheRecord:  {"Control+F9"},
	CmdLookupRelated:       {"F12"},
	CmdToggleInputMode:     {"Control+space"},
	CmdNextInputMethod:     {"Control+Down"},
	CmdPreviousInputMethod: {"Control+Up"},
	CmdToggleCaseMode:      {},
}

// New builds a KeyMap from a command → combination-strings table.
// Unknown keysym names are reported through errs and skipped; the rest of
// the table loads. Commands absent from the table fall back to
// DefaultBindings.
func New(table map[Command][]string) (*KeyMap, []error) {
	km := &KeyMap{bindings: make(map[Combo][]Command)}
	var errs []error

	add := func(cmd Command, combos []string) {
		for _, s := range combos {
			combo, err := ParseCombo(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("command %s: %w", cmd, err))
				continue
			}
			km.bindings[combo] = append(km.bindings[combo], cmd)
		}
	}

	for _, cmd := range KnownCommands {
		if combos, ok := table[cmd]; ok {
			add(cmd, combos)
		} else {
			add(cmd, DefaultBindings[cmd])
		}
	}
	for cmd := range table {
		known := false
		for _, k := range KnownCommands {
			if cmd == k {
				known = true
				break
			}
		}
		if !known {
			errs = append(errs, fmt.Errorf("%w: unknown command %q", ErrInvalidBinding, cmd))
		}
	}
	return km, errs
}

// State carries the lookup context Translate needs to resolve ambiguous
// bindings.
type State struct {
	ListVisible    bool // a candidate list is currently shown
	PreeditVisible bool // a preedit is currently being composed
}

// Translate maps a key event to the commands it triggers under the given
// state. The result is empty when the key carries no binding; the caller
// then treats printable keys as insert_raw.
//
// Key releases are ignored except for a bare shift tap (press and release
// of Shift with no intervening key), which toggles the case mode.
func (km *KeyMap) Translate(ev KeyEvent, st State) []Command {
	if ev.IsRelease {
		if (ev.Keyval == KeyShiftL || ev.Keyval == KeyShiftR) && km.lastPressed == ev.Keyval {
			km.lastPressed = 0
			return []Command{CmdToggleCaseMode}
		}
		return nil
	}
	km.lastPressed = ev.Keyval

	if IsModifierKey(ev.Keyval) {
		return nil
	}

	combo := Combo{Keysym: ev.Keyval, Modifiers: ev.Modifiers & (ModShift | ModControl | ModMod1 | ModMod4)}
	cmds := km.bindings[combo]
	if len(cmds) == 0 && combo.Modifiers&ModShift != 0 {
		// Shifted printable keysyms already carry the shift in the
		// keysym itself ("Shift+1" arrives as '!'); retry without it.
		retry := combo
		retry.Modifiers &^= ModShift
		cmds = km.bindings[retry]
	}
	if len(cmds) == 0 {
		return nil
	}

	// Digits act as commit shortcuts only while a list is visible;
	// otherwise they insert.
	if !st.ListVisible {
		filtered := cmds[:0:0]
		for _, cmd := range cmds {
			if CommitCandidateIndex(cmd) < 0 {
				filtered = append(filtered, cmd)
			}
		}
		cmds = filtered
		if len(cmds) == 0 {
			return nil
		}
	}

	// A key bound to both enable_lookup and select_next resolves by
	// whether a list is already visible.
	if len(cmds) > 1 {
		hasLookup, hasNext := false, false
		for _, cmd := range cmds {
			switch cmd {
			case CmdEnableLookup:
				hasLookup = true
			case CmdSelectNext:
				hasNext = true
			}
		}
		if hasLookup && hasNext {
			if st.ListVisible {
				return []Command{CmdSelectNext}
			}
			return []Command{CmdEnableLookup}
		}
	}
	return cmds
}
