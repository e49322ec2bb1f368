package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	yaml "gopkg.in/yaml.v2"
)

// file is the on-disk YAML shape. Options are flat key/value pairs;
// keybindings and autosettings have structure; unknown keys that look
// like appearance settings are kept for forwarding.
type file struct {
	Options      map[string]interface{} `yaml:",inline"`
	Keybindings  map[string][]string    `yaml:"keybindings"`
	AutoSettings [][]string             `yaml:"autosettings"`
}

// knownOption indexes the schema by name.
var knownOption = func() map[string]Option {
	m := make(map[string]Option, len(Schema))
	for _, opt := range Schema {
		m[opt.Name] = opt
	}
	return m
}()

// Load reads a YAML configuration file into a snapshot. A missing file
// yields the defaults. Invalid values are logged and fall back to their
// defaults; unknown non-appearance keys are logged and dropped.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	for name, raw := range f.Options {
		opt, known := knownOption[name]
		if !known {
			if isAppearanceKey(name) {
				c.Appearance[name] = fmt.Sprint(raw)
				continue
			}
			logger.Warn("unknown config option ignored", "option", name)
			continue
		}
		v := coerce(opt.Kind, raw)
		if opt.Validate != nil {
			if err := opt.Validate(v); err != nil {
				logger.Warn("invalid config value, using default",
					"option", name, "error", err)
				continue
			}
		}
		c.apply(name, v)
	}

	if f.Keybindings != nil {
		c.Keybindings = f.Keybindings
	}
	for _, triple := range f.AutoSettings {
		if len(triple) != 3 {
			logger.Warn("autosettings entry is not a triple", "entry", triple)
			continue
		}
		as, err := newAutoSetting(triple[0], triple[1], triple[2])
		if err != nil {
			logger.Warn("invalid autosetting skipped", "error", err)
			continue
		}
		c.AutoSettings = append(c.AutoSettings, as)
	}
	return c, nil
}

// coerce adapts YAML's decoded types to the schema kind.
func coerce(kind Kind, raw interface{}) interface{} {
	switch kind {
	case KindBool:
		if b, ok := raw.(bool); ok {
			return b
		}
		return raw
	case KindInt, KindUint, KindEnum:
		if n, ok := toInt(raw); ok {
			return n
		}
		return raw
	case KindString, KindList:
		if s, ok := raw.(string); ok {
			return s
		}
		return fmt.Sprint(raw)
	}
	return raw
}

// isAppearanceKey matches the candidate annotation color/label keys the
// core forwards without interpreting.
func isAppearanceKey(name string) bool {
	for _, prefix := range []string{"color", "label", "font", "dialog"} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// Store publishes configuration snapshots with a version stamp. The
// event loop reads Current between events; the daemon swaps in a new
// snapshot on reload.
type Store struct {
	version atomic.Uint64
	current atomic.Pointer[Config]
}

// NewStore starts with cfg as version 1.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.Publish(cfg)
	return s
}

// Publish stamps cfg with the next version and makes it current.
func (s *Store) Publish(cfg *Config) {
	cfg.Version = s.version.Add(1)
	s.current.Store(cfg)
}

// Current returns the latest snapshot.
func (s *Store) Current() *Config {
	return s.current.Load()
}
