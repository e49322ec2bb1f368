// Package compose interprets dead-key and compose-key sequences using
// the X11 Compose file format, with fallback synthesis for undefined
// dead-key and keypad sequences.
package compose

import (
	"sort"
	"sync/atomic"
)

// Trie maps keysym sequences to result strings. A Trie is immutable
// once published; reloads build a fresh one and swap it in.
type Trie struct {
	root *node
	// maxDepth is the length of the longest known sequence.
	maxDepth int
}

type node struct {
	children map[uint32]*node
	result   string
	leaf     bool
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &node{}}
}

// Insert adds a sequence. An empty result removes the sequence instead,
// so user overlay files can mask system entries.
func (t *Trie) Insert(seq []uint32, result string) {
	if len(seq) == 0 {
		return
	}
	if result == "" {
		t.remove(seq)
		return
	}
	n := t.root
	for _, sym := range seq {
		if n.children == nil {
			n.children = make(map[uint32]*node)
		}
		child, ok := n.children[sym]
		if !ok {
			child = &node{}
			n.children[sym] = child
		}
		n = child
	}
	n.result = result
	n.leaf = true
	if len(seq) > t.maxDepth {
		t.maxDepth = len(seq)
	}
}

func (t *Trie) remove(seq []uint32) {
	n := t.root
	path := make([]*node, 0, len(seq))
	for _, sym := range seq {
		child, ok := n.children[sym]
		if !ok {
			return
		}
		path = append(path, n)
		n = child
	}
	n.leaf = false
	n.result = ""
	// Prune now-empty nodes bottom up.
	for i := len(seq) - 1; i >= 0; i-- {
		parent := path[i]
		child := parent.children[seq[i]]
		if child.leaf || len(child.children) > 0 {
			break
		}
		delete(parent.children, seq[i])
	}
}

// Match classifies a prefix lookup.
type Match int

const (
	// NoMatch means no sequence continues from this prefix.
	NoMatch Match = iota
	// Prefix means the sequence is a live interior prefix.
	Prefix
	// Leaf means the sequence resolves to a result string.
	Leaf
)

// Lookup walks the prefix and classifies it. For Leaf the result string
// is returned.
func (t *Trie) Lookup(seq []uint32) (Match, string) {
	n := t.root
	for _, sym := range seq {
		child, ok := n.children[sym]
		if !ok {
			return NoMatch, ""
		}
		n = child
	}
	if n.leaf {
		return Leaf, n.result
	}
	if len(n.children) > 0 {
		return Prefix, ""
	}
	return NoMatch, ""
}

// MaxDepth returns the length of the longest known sequence.
func (t *Trie) MaxDepth() int { return t.maxDepth }

// Len counts the defined sequences.
func (t *Trie) Len() int {
	var count func(n *node) int
	count = func(n *node) int {
		c := 0
		if n.leaf {
			c++
		}
		for _, child := range n.children {
			c += count(child)
		}
		return c
	}
	return count(t.root)
}

// Completion is one reachable leaf under a live prefix.
type Completion struct {
	// Remaining is the key sequence still to type.
	Remaining []uint32
	// Result is the string the full sequence produces.
	Result string
}

// Completions enumerates the leaves of the subtree under prefix whose
// remaining keysyms are all members of available. A nil available set
// imposes no restriction. Results are ordered for stable candidate
// lists: by Unicode category class of the result, then lexicographic.
func (t *Trie) Completions(prefix []uint32, available map[uint32]bool) []Completion {
	n := t.root
	for _, sym := range prefix {
		child, ok := n.children[sym]
		if !ok {
			return nil
		}
		n = child
	}

	var out []Completion
	var walk func(n *node, remaining []uint32)
	walk = func(n *node, remaining []uint32) {
		if n.leaf {
			out = append(out, Completion{
				Remaining: append([]uint32(nil), remaining...),
				Result:    n.result,
			})
		}
		for sym, child := range n.children {
			if available != nil && !available[sym] {
				continue
			}
			walk(child, append(remaining, sym))
		}
	}
	walk(n, nil)

	sort.Slice(out, func(i, j int) bool {
		ci, cj := categoryClass(out[i].Result), categoryClass(out[j].Result)
		if ci != cj {
			return ci < cj
		}
		return out[i].Result < out[j].Result
	})
	return out
}

// Table is the shared, atomically swappable pair of system trie plus
// user overlay, published as a single merged trie.
type Table struct {
	current atomic.Pointer[Trie]
}

// NewTable starts with an empty trie.
func NewTable() *Table {
	tb := &Table{}
	tb.current.Store(NewTrie())
	return tb
}

// Load returns the current trie snapshot.
func (tb *Table) Load() *Trie {
	return tb.current.Load()
}

// Swap atomically publishes a newly built trie.
func (tb *Table) Swap(t *Trie) {
	tb.current.Store(t)
}
