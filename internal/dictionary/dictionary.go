// Package dictionary hosts per-locale word lists in the hunspell .dic
// format and exposes prefix lookup, spellchecking and correction
// suggestions. Accent-insensitive matching goes through the fold
// transformer; candidates keep their original accented form.
package dictionary

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MaxDictionaries bounds how many locales a Set may carry.
const MaxDictionaries = 10

// Dictionary is one loaded word list.
type Dictionary struct {
	Locale string

	// words in file order, original accented forms.
	words []string
	// folded[i] is Fold(words[i]); sortedIdx orders indices by folded
	// form for prefix scans.
	folded    []string
	sortedIdx []int
	// exact and foldedSet support O(1) spellcheck.
	exact     map[string]struct{}
	foldedSet map[string]struct{}
}

// loadDic parses a hunspell .dic file: an optional count header, then
// one word per line with optional /FLAGS suffix.
func loadDic(locale, path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := &Dictionary{
		Locale:    locale,
		exact:     make(map[string]struct{}),
		foldedSet: make(map[string]struct{}),
	}

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if first {
			first = false
			// The count header is a bare integer; skip it.
			if isDigits(line) {
				continue
			}
		}
		word := line
		if i := strings.IndexByte(word, '/'); i >= 0 {
			word = word[:i]
		}
		if i := strings.IndexByte(word, '\t'); i >= 0 {
			word = word[:i]
		}
		if word == "" {
			continue
		}
		d.words = append(d.words, word)
		d.exact[word] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	d.folded = make([]string, len(d.words))
	d.sortedIdx = make([]int, len(d.words))
	for i, w := range d.words {
		d.folded[i] = Fold(w)
		d.foldedSet[d.folded[i]] = struct{}{}
		d.sortedIdx[i] = i
	}
	sort.Slice(d.sortedIdx, func(a, b int) bool {
		return d.folded[d.sortedIdx[a]] < d.folded[d.sortedIdx[b]]
	})
	return d, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Lookup returns words whose folded form starts with the folded prefix,
// in original accented form, bounded by limit (0 = unbounded).
func (d *Dictionary) Lookup(prefix string, limit int) []string {
	fp := Fold(prefix)
	if fp == "" {
		return nil
	}
	// Binary search the fold-sorted index for the prefix range.
	lo := sort.Search(len(d.sortedIdx), func(i int) bool {
		return d.folded[d.sortedIdx[i]] >= fp
	})
	var out []string
	for i := lo; i < len(d.sortedIdx); i++ {
		w := d.sortedIdx[i]
		if !strings.HasPrefix(d.folded[w], fp) {
			break
		}
		out = append(out, d.words[w])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Spellcheck reports whether word is in the list, exactly or
// fold-equal.
func (d *Dictionary) Spellcheck(word string) bool {
	if _, ok := d.exact[word]; ok {
		return true
	}
	_, ok := d.foldedSet[Fold(word)]
	return ok
}

// Len returns the word count.
func (d *Dictionary) Len() int { return len(d.words) }

// Set lazily loads and caches dictionaries per locale.
type Set struct {
	dir     string
	locales []string
	logger  *slog.Logger

	mu     sync.Mutex
	loaded map[string]*Dictionary
	failed map[string]int // consecutive load failures, for the retry cap
}

// NewSet creates a set over the locales, loading .dic files from dir on
// first use. At most MaxDictionaries locales are kept.
func NewSet(dir string, locales []string, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	if len(locales) > MaxDictionaries {
		logger.Warn("too many dictionaries, truncating",
			"max", MaxDictionaries, "requested", len(locales))
		locales = locales[:MaxDictionaries]
	}
	trimmed := make([]string, 0, len(locales))
	for _, l := range locales {
		if l = strings.TrimSpace(l); l != "" {
			trimmed = append(trimmed, l)
		}
	}
	return &Set{
		dir:     dir,
		locales: trimmed,
		logger:  logger,
		loaded:  make(map[string]*Dictionary),
		failed:  make(map[string]int),
	}
}

// Locales returns the configured locales.
func (s *Set) Locales() []string {
	return append([]string(nil), s.locales...)
}

// get loads a dictionary on first use. A locale that failed to load is
// retried once, then dropped for the lifetime of the set.
func (s *Set) get(locale string) *Dictionary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.loaded[locale]; ok {
		return d
	}
	if s.failed[locale] >= 2 {
		return nil
	}
	path := filepath.Join(s.dir, locale+".dic")
	d, err := loadDic(locale, path)
	if err != nil {
		s.failed[locale]++
		s.logger.Warn("dictionary load failed",
			"locale", locale, "path", path, "attempt", s.failed[locale], "error", err)
		return nil
	}
	s.logger.Info("dictionary loaded", "locale", locale, "words", d.Len())
	s.loaded[locale] = d
	return d
}

// Lookup merges prefix completions across all loaded locales, first
// locale first, de-duplicated.
func (s *Set) Lookup(prefix string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, locale := range s.locales {
		d := s.get(locale)
		if d == nil {
			continue
		}
		for _, w := range d.Lookup(prefix, limit) {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// Spellcheck reports whether any loaded dictionary contains word.
func (s *Set) Spellcheck(word string) bool {
	for _, locale := range s.locales {
		if d := s.get(locale); d != nil && d.Spellcheck(word) {
			return true
		}
	}
	return false
}

// Suggest merges spell-correction suggestions across locales.
func (s *Set) Suggest(word string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, locale := range s.locales {
		d := s.get(locale)
		if d == nil {
			continue
		}
		for _, sug := range d.Suggest(word, limit) {
			if _, dup := seen[sug.Word]; dup {
				continue
			}
			seen[sug.Word] = struct{}{}
			out = append(out, sug.Word)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// Empty reports whether no dictionary could be loaded at all.
func (s *Set) Empty() bool {
	for _, locale := range s.locales {
		if s.get(locale) != nil {
			return false
		}
	}
	return true
}
