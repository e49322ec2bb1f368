// Package config holds the engine configuration: a declarative option
// schema, YAML loading, versioned snapshots for the event loop, and
// autosettings applied per focused client.
package config

import (
	"fmt"
	"strings"
)

// Kind is the type of a configuration option.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindString
	KindEnum
	KindList
	KindMap
)

// Option describes one schema entry.
type Option struct {
	Name     string
	Kind     Kind
	Default  interface{}
	Validate func(v interface{}) error
}

func intRange(lo, hi int) func(interface{}) error {
	return func(v interface{}) error {
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("not an integer: %v", v)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
		}
		return nil
	}
}

func listMax(max int) func(interface{}) error {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("not a string list: %v", v)
		}
		if n := len(splitList(s)); n > max {
			return fmt.Errorf("%d entries exceeds maximum %d", n, max)
		}
		return nil
	}
}

// Schema is the full option table: every recognized option with its
// type, default and validation. The setup tool iterates this table;
// nothing reflects over structs at runtime.
var Schema = []Option{
	{Name: "inputmethod", Kind: KindList, Default: "NoIME", Validate: listMax(10)},
	{Name: "dictionary", Kind: KindList, Default: "en_US", Validate: listMax(10)},
	{Name: "emojipredictions", Kind: KindBool, Default: false},
	{Name: "emojitriggercharacters", Kind: KindString, Default: "_"},
	{Name: "unicodedataall", Kind: KindBool, Default: false},
	{Name: "mincharcomplete", Kind: KindInt, Default: 1, Validate: intRange(1, 9)},
	{Name: "pagesize", Kind: KindInt, Default: 6, Validate: intRange(1, 9)},
	{Name: "inlinecompletion", Kind: KindEnum, Default: 0, Validate: intRange(0, 2)},
	{Name: "autoselectcandidate", Kind: KindEnum, Default: 0, Validate: intRange(0, 2)},
	{Name: "autocommitcharacters", Kind: KindString, Default: ""},
	{Name: "autocapitalize", Kind: KindBool, Default: false},
	{Name: "tabenable", Kind: KindBool, Default: false},
	{Name: "arrowkeysreopenpreedit", Kind: KindBool, Default: false},
	{Name: "disableinterminals", Kind: KindBool, Default: false},
	{Name: "offtherecord", Kind: KindBool, Default: false},
	{Name: "recordmode", Kind: KindEnum, Default: 0, Validate: intRange(0, 3)},
	{Name: "inputmode", Kind: KindBool, Default: true},
	{Name: "rememberinputmode", Kind: KindBool, Default: true},
	{Name: "rememberlastusedpreeditime", Kind: KindBool, Default: true},
	{Name: "candidatesdelaymilliseconds", Kind: KindUint, Default: 200},
	{Name: "debuglevel", Kind: KindInt, Default: 0, Validate: intRange(0, 255)},
}

// Config is one immutable configuration snapshot. The event loop picks
// up a new snapshot between events by comparing Version.
type Config struct {
	Version uint64

	InputMethods          []string
	Dictionaries          []string
	EmojiPredictions      bool
	EmojiTriggerChars     string
	UnicodeDataAll        bool
	MinCharComplete       int
	PageSize              int
	InlineCompletion      int
	AutoSelectCandidate   int
	AutoCommitCharacters  string
	AutoCapitalize        bool
	TabEnable             bool
	ArrowKeysReopenPreedit bool
	DisableInTerminals    bool
	OffTheRecord          bool
	RecordMode            int
	InputMode             bool
	RememberInputMode     bool
	RememberLastPreeditIME bool
	CandidatesDelayMillis uint
	DebugLevel            int

	// Keybindings maps command names to key-combo strings.
	Keybindings map[string][]string

	// AutoSettings are [option, value, clientRegex] triples applied at
	// focus-in.
	AutoSettings []AutoSetting

	// Appearance carries candidate color/label keys the core ignores
	// and forwards to the host untouched.
	Appearance map[string]string
}

// Default returns the snapshot with every option at its schema default.
func Default() *Config {
	c := &Config{
		Keybindings: map[string][]string{},
		Appearance:  map[string]string{},
	}
	for _, opt := range Schema {
		c.apply(opt.Name, opt.Default)
	}
	return c
}

// apply sets one option from a schema-typed value. Unknown names are
// ignored here; Load reports them.
func (c *Config) apply(name string, v interface{}) {
	switch name {
	case "inputmethod":
		c.InputMethods = splitList(asString(v))
		if len(c.InputMethods) == 0 {
			c.InputMethods = []string{"NoIME"}
		}
	case "dictionary":
		c.Dictionaries = splitList(asString(v))
	case "emojipredictions":
		c.EmojiPredictions = asBool(v)
	case "emojitriggercharacters":
		c.EmojiTriggerChars = asString(v)
	case "unicodedataall":
		c.UnicodeDataAll = asBool(v)
	case "mincharcomplete":
		c.MinCharComplete, _ = toInt(v)
	case "pagesize":
		c.PageSize, _ = toInt(v)
	case "inlinecompletion":
		c.InlineCompletion, _ = toInt(v)
	case "autoselectcandidate":
		c.AutoSelectCandidate, _ = toInt(v)
	case "autocommitcharacters":
		c.AutoCommitCharacters = asString(v)
	case "autocapitalize":
		c.AutoCapitalize = asBool(v)
	case "tabenable":
		c.TabEnable = asBool(v)
	case "arrowkeysreopenpreedit":
		c.ArrowKeysReopenPreedit = asBool(v)
	case "disableinterminals":
		c.DisableInTerminals = asBool(v)
	case "offtherecord":
		c.OffTheRecord = asBool(v)
	case "recordmode":
		c.RecordMode, _ = toInt(v)
	case "inputmode":
		c.InputMode = asBool(v)
	case "rememberinputmode":
		c.RememberInputMode = asBool(v)
	case "rememberlastusedpreeditime":
		c.RememberLastPreeditIME = asBool(v)
	case "candidatesdelaymilliseconds":
		n, _ := toInt(v)
		if n >= 0 {
			c.CandidatesDelayMillis = uint(n)
		}
	case "debuglevel":
		c.DebugLevel, _ = toInt(v)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
