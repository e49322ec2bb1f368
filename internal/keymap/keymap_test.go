package keymap

import (
	"errors"
	"testing"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in   string
		want Combo
	}{
		{"space", Combo{Keysym: KeySpace}},
		{"Tab", Combo{Keysym: KeyTab}},
		{"Shift+Tab", Combo{Keysym: KeyTab, Modifiers: ModShift}},
		{"Control+period", Combo{Keysym: '.', Modifiers: ModControl}},
		{"Control+Alt+F6", Combo{Keysym: KeyF6, Modifiers: ModControl | ModMod1}},
		{"a", Combo{Keysym: 'a'}},
		{"U0915", Combo{Keysym: 0x01000000 + 0x0915}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCombo(tt.in)
			if err != nil {
				t.Fatalf("ParseCombo(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCombo(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, in := range []string{"", "NoSuchKey", "Hyper+a", "Control+"} {
		if _, err := ParseCombo(in); !errors.Is(err, ErrInvalidBinding) {
			t.Errorf("ParseCombo(%q) = %v, want ErrInvalidBinding", in, err)
		}
	}
}

func TestNewReportsInvalidBindingsButLoadsRest(t *testing.T) {
	km, errs := New(map[Command][]string{
		CmdCancel:     {"Escape", "NoSuchKeysym"},
		CmdSelectNext: {"Tab"},
	})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	cmds := km.Translate(KeyEvent{Keyval: KeyEscape}, State{})
	if len(cmds) != 1 || cmds[0] != CmdCancel {
		t.Fatalf("Escape = %v, want [cancel]", cmds)
	}
}

func TestTabPrecedence(t *testing.T) {
	km, _ := New(nil) // defaults bind Tab to both enable_lookup and select_next

	cmds := km.Translate(KeyEvent{Keyval: KeyTab}, State{ListVisible: false})
	if len(cmds) != 1 || cmds[0] != CmdEnableLookup {
		t.Fatalf("Tab without list = %v, want [enable_lookup]", cmds)
	}

	cmds = km.Translate(KeyEvent{Keyval: KeyTab}, State{ListVisible: true})
	if len(cmds) != 1 || cmds[0] != CmdSelectNext {
		t.Fatalf("Tab with list = %v, want [select_next_candidate]", cmds)
	}
}

func TestDigitsCommitOnlyWithVisibleList(t *testing.T) {
	km, _ := New(nil)

	cmds := km.Translate(KeyEvent{Keyval: '1'}, State{ListVisible: true})
	if len(cmds) != 1 || cmds[0] != CmdCommitCandidate1 {
		t.Fatalf("digit with list = %v, want [commit_candidate_1]", cmds)
	}

	cmds = km.Translate(KeyEvent{Keyval: '1'}, State{ListVisible: false})
	if len(cmds) != 0 {
		t.Fatalf("digit without list = %v, want none (inserts)", cmds)
	}
}

func TestShiftTapTogglesCaseMode(t *testing.T) {
	km, _ := New(nil)

	// Press and release with no intervening key: toggle.
	km.Translate(KeyEvent{Keyval: KeyShiftL}, State{})
	cmds := km.Translate(KeyEvent{Keyval: KeyShiftL, IsRelease: true}, State{})
	if len(cmds) != 1 || cmds[0] != CmdToggleCaseMode {
		t.Fatalf("bare shift tap = %v, want [toggle_case_mode]", cmds)
	}

	// An intervening press cancels the pair.
	km.Translate(KeyEvent{Keyval: KeyShiftL}, State{})
	km.Translate(KeyEvent{Keyval: 'a'}, State{})
	cmds = km.Translate(KeyEvent{Keyval: KeyShiftL, IsRelease: true}, State{})
	if len(cmds) != 0 {
		t.Fatalf("shift release after key = %v, want none", cmds)
	}
}

func TestReleasesOtherwiseIgnored(t *testing.T) {
	km, _ := New(nil)
	if cmds := km.Translate(KeyEvent{Keyval: 'a', IsRelease: true}, State{}); len(cmds) != 0 {
		t.Fatalf("release = %v, want none", cmds)
	}
}

func TestDisabledCommand(t *testing.T) {
	km, _ := New(map[Command][]string{CmdCancel: {}})
	if cmds := km.Translate(KeyEvent{Keyval: KeyEscape}, State{}); len(cmds) != 0 {
		t.Fatalf("Escape with cancel disabled = %v, want none", cmds)
	}
}

func TestKeysymByName(t *testing.T) {
	tests := []struct {
		name string
		want uint32
		ok   bool
	}{
		{"space", KeySpace, true},
		{"dead_acute", KeyDeadAcute, true},
		{"KP_5", KeyKP0 + 5, true},
		{"minus", '-', true},
		{"z", 'z', true},
		{"é", 0xe9, true},
		{"U1F40D", 0x01000000 + 0x1F40D, true},
		{"bogus", 0, false},
	}
	for _, tt := range tests {
		got, ok := KeysymByName(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("KeysymByName(%q) = %#x,%v want %#x,%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeypadMapping(t *testing.T) {
	plain, ok := KeypadToPlain(KeyKP0 + 7)
	if !ok || plain != '7' {
		t.Fatalf("KeypadToPlain(KP_7) = %q,%v", plain, ok)
	}
	kp, ok := PlainToKeypad('7')
	if !ok || kp != KeyKP0+7 {
		t.Fatalf("PlainToKeypad('7') = %#x,%v", kp, ok)
	}
	if !IsKeypad(KeyKPDivide) {
		t.Fatal("KP_Divide should be keypad")
	}
	if IsKeypad('7') {
		t.Fatal("plain 7 is not keypad")
	}
}

func TestKeysymRuneRoundTrip(t *testing.T) {
	for _, r := range []rune{'a', 'Z', '0', 'é', 'ü', '€', 'क', '🐫'} {
		sym := RuneToKeysym(r)
		if got := KeysymToRune(sym); got != r {
			t.Errorf("round trip %q -> %#x -> %q", r, sym, got)
		}
	}
	if KeysymToRune(KeyBackspace) != 0 {
		t.Error("BackSpace has no rune")
	}
}

func TestDeadKeyTable(t *testing.T) {
	if !IsDeadKey(KeyDeadMacron) {
		t.Fatal("dead_macron should be a dead key")
	}
	if DeadKeyCombining(KeyDeadMacron) != 0x0304 {
		t.Fatal("dead_macron carries U+0304")
	}
	if IsDeadKey('a') {
		t.Fatal("'a' is not a dead key")
	}
}
