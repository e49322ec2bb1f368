package config

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// AutoSetting overrides one option when the focused client id matches
// its pattern. Patterns use regexp2 so lookarounds from user configs
// keep working.
type AutoSetting struct {
	Option  string
	Value   string
	pattern *regexp2.Regexp
}

func newAutoSetting(option, value, pattern string) (AutoSetting, error) {
	if _, known := knownOption[option]; !known {
		return AutoSetting{}, fmt.Errorf("autosetting for unknown option %q", option)
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return AutoSetting{}, fmt.Errorf("autosetting pattern %q: %w", pattern, err)
	}
	return AutoSetting{Option: option, Value: value, pattern: re}, nil
}

// Matches reports whether the setting applies to the client id.
func (a AutoSetting) Matches(clientID string) bool {
	ok, err := a.pattern.MatchString(clientID)
	return err == nil && ok
}

// ApplyAutoSettings derives a focused-client snapshot: the base config
// with every matching autosetting applied. The result shares no
// mutable state with base.
func ApplyAutoSettings(base *Config, clientID string) *Config {
	matched := false
	for _, as := range base.AutoSettings {
		if as.Matches(clientID) {
			matched = true
			break
		}
	}
	if !matched {
		return base
	}

	derived := *base
	for _, as := range base.AutoSettings {
		if !as.Matches(clientID) {
			continue
		}
		opt := knownOption[as.Option]
		v := coerceString(opt.Kind, as.Value)
		if opt.Validate != nil && opt.Validate(v) != nil {
			continue
		}
		derived.apply(as.Option, v)
	}
	return &derived
}

// coerceString parses an autosetting value according to the option
// kind.
func coerceString(kind Kind, s string) interface{} {
	switch kind {
	case KindBool:
		return s == "true" || s == "True" || s == "1"
	case KindInt, KindUint, KindEnum:
		n := 0
		fmt.Sscanf(s, "%d", &n)
		return n
	}
	return s
}
