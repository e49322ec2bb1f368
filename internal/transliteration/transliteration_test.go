package transliteration

import (
	"log/slog"
	"testing"
)

func TestITransWords(t *testing.T) {
	itrans := newITrans()

	tests := []struct {
		input    string
		expected string
	}{
		{"guru", "गुरु"},
		{"namaste", "नमस्ते"},
		{"bhaarat", "भारत्"},
		{"hindii", "हिन्दी"},
		{"aam", "आम्"},
		{"a", "अ"},
		{"ka", "क"},
		{"kha", "ख"},
		{"k", "क्"},
		{"OM", "ॐ"},
		{"raam", "राम्"},
		{"yoga", "योग"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := itrans.Transliterate([]rune(tt.input))
			if got != tt.expected {
				t.Errorf("Transliterate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLatnPost(t *testing.T) {
	m := latnPost{}

	tests := []struct {
		input    string
		expected string
	}{
		{"a'", "á"},
		{"e`", "è"},
		{"o^", "ô"},
		{"n~", "ñ"},
		{"u\"", "ü"},
		{"c,", "ç"},
		{"a-", "ā"},
		{"abc", "abc"},
		{"''", "'"},
		{"'a", "'a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := m.Transliterate([]rune(tt.input))
			if got != tt.expected {
				t.Errorf("Transliterate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewSetSkipsUnknownMethods(t *testing.T) {
	set := NewSet([]string{"no-such-method", "hi-itrans"}, slog.Default())
	names := set.Names()
	if len(names) != 1 || names[0] != "hi-itrans" {
		t.Fatalf("Names() = %v, want [hi-itrans]", names)
	}
}

func TestNewSetFallsBackToNoIME(t *testing.T) {
	set := NewSet(nil, slog.Default())
	if got := set.Canonical([]rune("abc")); got != "abc" {
		t.Fatalf("Canonical = %q, want abc", got)
	}
	if set.Names()[0] != NoIMEName {
		t.Fatalf("Names()[0] = %q, want %s", set.Names()[0], NoIMEName)
	}
}

func TestSetViewsShareTokenSequence(t *testing.T) {
	set := NewSet([]string{"hi-itrans", "NoIME"}, slog.Default())
	views := set.Views([]rune("guru"))
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Text != "गुरु" {
		t.Errorf("itrans view = %q, want गुरु", views[0].Text)
	}
	if views[1].Text != "guru" {
		t.Errorf("NoIME view = %q, want guru", views[1].Text)
	}
}

func TestSetCapsMethodCount(t *testing.T) {
	names := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		names = append(names, "NoIME")
	}
	set := NewSet(names, slog.Default())
	if set.Len() != MaxMethods {
		t.Fatalf("Len() = %d, want %d", set.Len(), MaxMethods)
	}
}

func TestStreamReset(t *testing.T) {
	m, _ := New("vi-telex")
	s := &Stream{method: m}
	s.Feed('m')
	s.Feed('a')
	s.Feed('s')
	s.Reset()
	_, pending := s.Feed('b')
	if pending != "b" {
		t.Fatalf("pending after reset = %q, want b", pending)
	}
}
