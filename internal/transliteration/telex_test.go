package transliteration

import (
	"testing"
)

func TestTelexToneKeys(t *testing.T) {
	tests := []struct {
		char     rune
		expected toneMark
	}{
		{'s', toneSac},
		{'f', toneHuyen},
		{'r', toneHoi},
		{'x', toneNga},
		{'j', toneNang},
		{'z', toneNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.char), func(t *testing.T) {
			tone, ok := telexToneKeys[tt.char]
			if !ok {
				t.Fatalf("telexToneKeys[%c] missing", tt.char)
			}
			if tone != tt.expected {
				t.Errorf("telexToneKeys[%c] = %v, want %v", tt.char, tone, tt.expected)
			}
		})
	}
}

func TestTelexWords(t *testing.T) {
	telex := newTelex()

	tests := []struct {
		input    string
		expected string
	}{
		// Basic words without marks
		{"toi", "toi"},
		{"ban", "ban"},

		// Tone marks
		{"tois", "tói"},
		{"toif", "tòi"},
		{"mas", "má"},
		{"maf", "mà"},
		{"mar", "mả"},
		{"max", "mã"},
		{"maj", "mạ"},

		// Tone revert: same tone key twice removes the tone
		{"mass", "mas"},

		// Tone removal with z
		{"masz", "ma"},

		// Double vowels
		{"aa", "â"},
		{"ee", "ê"},
		{"oo", "ô"},
		{"dd", "đ"},
		{"maas", "mấ"},

		// Horn and breve with w
		{"aw", "ă"},
		{"ow", "ơ"},
		{"uw", "ư"},
		{"w", "ư"},

		// Complete words
		{"vieetj", "việt"},
		{"nam", "nam"},
		{"tieengs", "tiếng"},
		{"nguwowif", "người"},
		{"duocwj", "dược"},
		{"ddaaus", "đấu"},
		{"hoaf", "hòa"},
		{"thuyr", "thủy"},
		{"nghieng", "nghieng"},

		// Word breaks pass through
		{"toi la", "toi la"},
		{"mas mas", "má má"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := telex.Transliterate([]rune(tt.input))
			if got != tt.expected {
				t.Errorf("Transliterate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTelexUppercase(t *testing.T) {
	telex := newTelex()

	tests := []struct {
		input    string
		expected string
	}{
		{"Mas", "Má"},
		{"AA", "Â"},
		{"DD", "Đ"},
		{"Vieetj", "Việt"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := telex.Transliterate([]rune(tt.input))
			if got != tt.expected {
				t.Errorf("Transliterate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestVNIWords(t *testing.T) {
	vni := newVNI()

	tests := []struct {
		input    string
		expected string
	}{
		{"toi", "toi"},
		{"ma1", "má"},
		{"ma2", "mà"},
		{"ma3", "mả"},
		{"ma4", "mã"},
		{"ma5", "mạ"},
		{"ma11", "ma1"},
		{"a6", "â"},
		{"e6", "ê"},
		{"o6", "ô"},
		{"o7", "ơ"},
		{"u7", "ư"},
		{"a8", "ă"},
		{"d9", "đ"},
		{"vie6t5", "việt"},
		{"duo7c5", "dược"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := vni.Transliterate([]rune(tt.input))
			if got != tt.expected {
				t.Errorf("Transliterate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// Incremental feeding and from-scratch recomputation must agree for
// every prefix of every input.
func TestIncrementalMatchesScratch(t *testing.T) {
	inputs := []string{
		"vieetj", "duocwj", "tieengs", "guru", "namaste", "a'e`o^", "hello world",
	}
	for _, name := range []string{"vi-telex", "hi-itrans", "t-latn-post", "NoIME"} {
		m, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		for _, input := range inputs {
			stream := &Stream{method: m}
			keys := []rune(input)
			var pending string
			for _, k := range keys {
				_, pending = stream.Feed(k)
			}
			scratch := m.Transliterate(keys)
			if pending != scratch {
				t.Errorf("%s: incremental %q != scratch %q for input %q",
					name, pending, scratch, input)
			}
		}
	}
}
