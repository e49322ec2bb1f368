package dictionary

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enDic = `9
hello
help
helm
world
the
cafe
naive
resume
Zürich
`

const deDic = `4
Tür/S
Mädchen
schön/AB
über
`

func writeDicts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en_US.dic"), []byte(enDic), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "de_DE.dic"), []byte(deDic), 0o644))
	return dir
}

func TestLoadDicSkipsCountHeaderAndFlags(t *testing.T) {
	dir := writeDicts(t)
	d, err := loadDic("de_DE", filepath.Join(dir, "de_DE.dic"))
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())
	assert.True(t, d.Spellcheck("Tür"))
	assert.True(t, d.Spellcheck("schön"))
}

func TestLookupPrefix(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US"}, slog.Default())

	words := s.Lookup("hel", 0)
	assert.ElementsMatch(t, []string{"hello", "help", "helm"}, words)

	words = s.Lookup("wor", 0)
	assert.Equal(t, []string{"world"}, words)

	assert.Empty(t, s.Lookup("xyz", 0))
}

func TestLookupIsAccentInsensitive(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US", "de_DE"}, slog.Default())

	// Folded prefixes match accented words; the accented original is
	// returned.
	assert.Equal(t, []string{"Zürich"}, s.Lookup("zur", 0))
	assert.Equal(t, []string{"Tür"}, s.Lookup("tur", 0))
	assert.Equal(t, []string{"über"}, s.Lookup("uber", 0))
}

func TestLookupLimit(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US"}, slog.Default())
	assert.Len(t, s.Lookup("hel", 2), 2)
}

func TestSpellcheck(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US", "de_DE"}, slog.Default())

	assert.True(t, s.Spellcheck("hello"))
	assert.True(t, s.Spellcheck("Mädchen"))
	// Fold-equal spelling counts.
	assert.True(t, s.Spellcheck("madchen"))
	assert.False(t, s.Spellcheck("teh"))
}

func TestSuggest(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US"}, slog.Default())

	words := s.Suggest("helo", 0)
	assert.Contains(t, words, "hello")
	assert.Contains(t, words, "help")
	assert.Contains(t, words, "helm")

	// Transposition is one edit.
	assert.Contains(t, s.Suggest("teh", 0), "the")

	// Far-away words are not suggestions.
	assert.NotContains(t, s.Suggest("teh", 0), "world")
}

func TestSuggestExcludesExactWord(t *testing.T) {
	dir := writeDicts(t)
	s := NewSet(dir, []string{"en_US"}, slog.Default())
	assert.NotContains(t, s.Suggest("hello", 0), "hello")
}

func TestMissingDictionaryDegrades(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, []string{"xx_XX"}, slog.Default())
	assert.Empty(t, s.Lookup("a", 0))
	assert.False(t, s.Spellcheck("a"))
	assert.True(t, s.Empty())
}

func TestSetCapsLocaleCount(t *testing.T) {
	locales := make([]string, 12)
	for i := range locales {
		locales[i] = "xx"
	}
	s := NewSet(t.TempDir(), locales, slog.Default())
	assert.Len(t, s.Locales(), MaxDictionaries)
}

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Café", "cafe"},
		{"NAÏVE", "naive"},
		{"Zürich", "zurich"},
		{"resume", "resume"},
		{"ĖĒ", "ee"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}
