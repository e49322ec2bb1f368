// Package transliteration converts typed key streams into target-script
// strings. Every input method is a deterministic function of the full
// token sequence, so views can always be rebuilt from scratch after
// cursor edits.
package transliteration

import (
	"fmt"
	"log/slog"
	"strings"
)

// MaxMethods bounds how many input methods a Set may carry.
const MaxMethods = 10

// NoIMEName is the identity input method.
const NoIMEName = "NoIME"

// Method is a single transliteration automaton.
type Method interface {
	// Name returns the configured method name, e.g. "hi-itrans".
	Name() string

	// Transliterate recomputes the output string for the whole typed
	// key sequence. It must be a pure function of keys.
	Transliterate(keys []rune) string
}

// New constructs a method by name. Unknown names return an error.
func New(name string) (Method, error) {
	switch name {
	case NoIMEName, "":
		return noIME{}, nil
	case "vi-telex":
		return newTelex(), nil
	case "vi-vni":
		return newVNI(), nil
	case "hi-itrans":
		return newITrans(), nil
	case "t-latn-post":
		return latnPost{}, nil
	}
	return nil, fmt.Errorf("unknown input method %q", name)
}

// Stream is the stateful view of one method: it accumulates fed keys and
// tracks the output emitted so far.
type Stream struct {
	method Method
	keys   []rune
	output string
}

// Feed appends one key and returns the committed characters plus the
// full pending output. Committed characters are the whole stable prefix
// shared with the previous output, so they repeat across calls; a method may rewrite its tail (tone
// marks, conjuncts), so committed can be empty while pending changes.
func (s *Stream) Feed(key rune) (committed, pending string) {
	prev := s.output
	s.keys = append(s.keys, key)
	s.output = s.method.Transliterate(s.keys)

	n := commonPrefixLen(prev, s.output)
	return s.output[:n], s.output
}

// Reset clears the automaton.
func (s *Stream) Reset() {
	s.keys = s.keys[:0]
	s.output = ""
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// View is the per-method rendering of a token sequence.
type View struct {
	Method string
	Text   string
}

// Set holds the configured input methods in priority order. The first
// method supplies the canonical view.
type Set struct {
	methods []Method
	streams []*Stream
}

// NewSet builds a set from configured method names. Unknown names are
// logged and skipped; an empty result falls back to NoIME alone.
func NewSet(names []string, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Set{}
	for _, name := range names {
		if len(s.methods) == MaxMethods {
			logger.Warn("too many input methods, ignoring rest",
				"max", MaxMethods, "ignored", name)
			break
		}
		m, err := New(strings.TrimSpace(name))
		if err != nil {
			logger.Warn("skipping input method", "error", err)
			continue
		}
		s.methods = append(s.methods, m)
	}
	if len(s.methods) == 0 {
		s.methods = append(s.methods, noIME{})
	}
	for _, m := range s.methods {
		s.streams = append(s.streams, &Stream{method: m})
	}
	return s
}

// Names returns the method names in priority order.
func (s *Set) Names() []string {
	names := make([]string, len(s.methods))
	for i, m := range s.methods {
		names[i] = m.Name()
	}
	return names
}

// Len returns the number of configured methods.
func (s *Set) Len() int {
	return len(s.methods)
}

// Views recomputes all per-method views for the token sequence.
func (s *Set) Views(keys []rune) []View {
	views := make([]View, len(s.methods))
	for i, m := range s.methods {
		views[i] = View{Method: m.Name(), Text: m.Transliterate(keys)}
	}
	return views
}

// Canonical returns the highest-priority view of the token sequence.
func (s *Set) Canonical(keys []rune) string {
	if len(s.methods) == 0 {
		return string(keys)
	}
	return s.methods[0].Transliterate(keys)
}

// Feed feeds one key to every stream and returns the pending outputs in
// method order.
func (s *Set) Feed(key rune) []string {
	pending := make([]string, len(s.streams))
	for i, st := range s.streams {
		_, p := st.Feed(key)
		pending[i] = p
	}
	return pending
}

// Reset clears every stream.
func (s *Set) Reset() {
	for _, st := range s.streams {
		st.Reset()
	}
}

// noIME passes typed keys through unchanged.
type noIME struct{}

func (noIME) Name() string                      { return NoIMEName }
func (noIME) Transliterate(keys []rune) string { return string(keys) }
