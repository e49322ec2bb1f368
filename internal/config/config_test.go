package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"NoIME"}, c.InputMethods)
	assert.Equal(t, []string{"en_US"}, c.Dictionaries)
	assert.Equal(t, 6, c.PageSize)
	assert.Equal(t, 1, c.MinCharComplete)
	assert.Equal(t, "_", c.EmojiTriggerChars)
	assert.Equal(t, uint(200), c.CandidatesDelayMillis)
	assert.False(t, c.EmojiPredictions)
	assert.True(t, c.InputMode)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
inputmethod: "hi-itrans,NoIME"
dictionary: "en_US,hi_IN"
emojipredictions: true
pagesize: 9
mincharcomplete: 3
autocommitcharacters: ".,;"
candidatesdelaymilliseconds: 50
keybindings:
  commit_preedit: ["space", "KP_Enter"]
  cancel: []
autosettings:
  - [offtherecord, "true", ".*terminal.*"]
colorcandidate1: "#ff0000"
`)
	c, err := Load(path, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"hi-itrans", "NoIME"}, c.InputMethods)
	assert.Equal(t, []string{"en_US", "hi_IN"}, c.Dictionaries)
	assert.True(t, c.EmojiPredictions)
	assert.Equal(t, 9, c.PageSize)
	assert.Equal(t, 3, c.MinCharComplete)
	assert.Equal(t, ".,;", c.AutoCommitCharacters)
	assert.Equal(t, uint(50), c.CandidatesDelayMillis)
	assert.Equal(t, []string{"space", "KP_Enter"}, c.Keybindings["commit_preedit"])
	assert.Empty(t, c.Keybindings["cancel"])
	require.Len(t, c.AutoSettings, 1)
	assert.Equal(t, "#ff0000", c.Appearance["colorcandidate1"])
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, Default().PageSize, c.PageSize)
}

func TestLoadInvalidValueFallsBack(t *testing.T) {
	path := writeConfig(t, "pagesize: 42\nmincharcomplete: 0\n")
	c, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 6, c.PageSize)
	assert.Equal(t, 1, c.MinCharComplete)
}

func TestLoadTooManyInputMethods(t *testing.T) {
	path := writeConfig(t, `inputmethod: "a,b,c,d,e,f,g,h,i,j,k"`)
	c, err := Load(path, slog.Default())
	require.NoError(t, err)
	// Over the limit: the value is rejected and the default stands.
	assert.Equal(t, []string{"NoIME"}, c.InputMethods)
}

func TestAutoSettings(t *testing.T) {
	path := writeConfig(t, `
autosettings:
  - [offtherecord, "true", ".*term.*"]
  - [pagesize, "3", "editor"]
  - [badoption, "x", ".*"]
  - [pagesize, "3"]
`)
	c, err := Load(path, slog.Default())
	require.NoError(t, err)
	// The unknown option and the two-element entry are dropped.
	require.Len(t, c.AutoSettings, 2)

	derived := ApplyAutoSettings(c, "xterm-256color")
	assert.True(t, derived.OffTheRecord)
	assert.Equal(t, c.PageSize, derived.PageSize)
	// The base snapshot is untouched.
	assert.False(t, c.OffTheRecord)

	derived = ApplyAutoSettings(c, "gnome-editor")
	assert.False(t, derived.OffTheRecord)
	assert.Equal(t, 3, derived.PageSize)

	// No match returns the base unchanged.
	same := ApplyAutoSettings(c, "browser")
	assert.Same(t, c, same)
}

func TestStoreVersioning(t *testing.T) {
	s := NewStore(Default())
	v1 := s.Current().Version
	assert.NotZero(t, v1)

	next := Default()
	s.Publish(next)
	assert.Greater(t, s.Current().Version, v1)
	assert.Same(t, next, s.Current())
}

func TestSchemaCoversEveryOption(t *testing.T) {
	seen := map[string]bool{}
	for _, opt := range Schema {
		assert.False(t, seen[opt.Name], "duplicate schema entry %s", opt.Name)
		seen[opt.Name] = true
		if opt.Validate != nil {
			assert.NoError(t, opt.Validate(coerce(opt.Kind, opt.Default)),
				"default for %s fails its own validation", opt.Name)
		}
	}
	for _, name := range []string{"inputmethod", "dictionary", "pagesize", "recordmode", "keybindings"} {
		if name == "keybindings" {
			continue // structured, not a flat schema option
		}
		assert.True(t, seen[name], "schema missing %s", name)
	}
}
