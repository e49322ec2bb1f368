package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/typing-booster/internal/keymap"
)

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Compose")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testComposeFile = `# test compose definitions
<Multi_key> <minus> <minus> <minus>	: "—"	emdash
<Multi_key> <minus> <minus> <period>	: "–"	endash
<Multi_key> <o> <c>			: "©"	copyright
<Multi_key> <o> <r>			: "®"
<Multi_key> <plus> <plus>		: "#"
<dead_acute> <a>			: "á"
<dead_acute> <e>			: "é"
<dead_grave> <a>			: "à"
this line is garbage
<Multi_key> <unknownsym> <x>		: "?"
`

func loadTestTrie(t *testing.T) *Trie {
	t.Helper()
	trie := NewTrie()
	require.NoError(t, ParseFile(trie, writeCompose(t, testComposeFile), ParseOptions{}))
	return trie
}

func syms(names ...string) []uint32 {
	out := make([]uint32, len(names))
	for i, n := range names {
		sym, ok := keymap.KeysymByName(n)
		if !ok {
			panic("unknown keysym " + n)
		}
		out[i] = sym
	}
	return out
}

func TestParseSkipsMalformedLines(t *testing.T) {
	trie := loadTestTrie(t)
	// 8 good sequences; the garbage line and the unknown keysym line
	// are skipped.
	assert.Equal(t, 8, trie.Len())
}

func TestTrieLookup(t *testing.T) {
	trie := loadTestTrie(t)

	m, result := trie.Lookup(syms("Multi_key", "minus", "minus", "minus"))
	assert.Equal(t, Leaf, m)
	assert.Equal(t, "—", result)

	m, _ = trie.Lookup(syms("Multi_key", "minus", "minus"))
	assert.Equal(t, Prefix, m)

	m, _ = trie.Lookup(syms("Multi_key", "q"))
	assert.Equal(t, NoMatch, m)
}

func TestEmptyResultRemovesSequence(t *testing.T) {
	trie := loadTestTrie(t)
	trie.Insert(syms("Multi_key", "o", "c"), "")

	m, _ := trie.Lookup(syms("Multi_key", "o", "c"))
	assert.Equal(t, NoMatch, m)
	// The sibling sequence survives.
	m, result := trie.Lookup(syms("Multi_key", "o", "r"))
	assert.Equal(t, Leaf, m)
	assert.Equal(t, "®", result)
}

func TestEngineResolvesSequence(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	seq := syms("Multi_key", "minus", "minus", "minus")
	for i, sym := range seq[:3] {
		res := e.Feed(sym)
		assert.Equal(t, Live, res.Status, "key %d", i)
	}
	res := e.Feed(seq[3])
	assert.Equal(t, Resolved, res.Status)
	assert.Equal(t, "—", res.Text)
	assert.False(t, e.InProgress())
}

func TestEngineRejectKeepsPrefix(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(syms("Multi_key")[0])
	e.Feed(syms("minus")[0])
	res := e.Feed(syms("q")[0])
	assert.Equal(t, Rejected, res.Status)
	// The valid prefix survives and can still resolve.
	e.Feed(syms("minus")[0])
	res = e.Feed(syms("minus")[0])
	assert.Equal(t, Resolved, res.Status)
	assert.Equal(t, "—", res.Text)
}

func TestEngineLongestSequencePlusOne(t *testing.T) {
	table := NewTable()
	trie := loadTestTrie(t)
	table.Swap(trie)
	e := NewEngine(table)

	// Walk the longest defined sequence short of its leaf, then hit a
	// key with no continuation.
	e.Feed(syms("Multi_key")[0])
	e.Feed(syms("minus")[0])
	e.Feed(syms("minus")[0])
	res := e.Feed(syms("z")[0])
	assert.Equal(t, Rejected, res.Status)
	assert.Equal(t, 3, len(e.Prefix()))
}

func TestDeadKeyFallback(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	// dead_macron dead_abovedot e is undefined: the fallback emits the
	// base letter plus the combining marks in reverse order, NFC'd.
	// e + abovedot composes to ė (U+0117); the macron stays combining.
	res := e.Feed(keymap.KeyDeadMacron)
	assert.Equal(t, Live, res.Status)
	res = e.Feed(keymap.KeyDeadAbovedot)
	assert.Equal(t, Live, res.Status)
	res = e.Feed(uint32('e'))
	assert.Equal(t, Resolved, res.Status)
	assert.Equal(t, "ė̄", res.Text)
}

func TestDeadKeyDefinedSequenceWins(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(keymap.KeyDeadAcute)
	res := e.Feed(uint32('a'))
	assert.Equal(t, Resolved, res.Status)
	assert.Equal(t, "á", res.Text)
}

func TestDeadKeyFallbackRejectsNonLetter(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(keymap.KeyDeadMacron)
	res := e.Feed(uint32('5'))
	assert.Equal(t, Rejected, res.Status)
	assert.Equal(t, 1, len(e.Prefix()))
}

func TestKeypadFallback(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	// <Multi_key> <plus> <plus> is defined with the plain plus; typing
	// KP_Add substitutes.
	e.Feed(keymap.KeyMultiKey)
	res := e.Feed(keymap.KeyKPAdd)
	assert.Equal(t, Live, res.Status)
	res = e.Feed(keymap.KeyKPAdd)
	assert.Equal(t, Resolved, res.Status)
	assert.Equal(t, "#", res.Text)
}

func TestCompletions(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(keymap.KeyMultiKey)
	e.Feed(uint32('o'))
	comps := e.Completions(nil)
	require.Len(t, comps, 2)
	// Symbols sort after letters/digits; both results here are
	// symbols (So/Sk) ordered lexicographically by result.
	texts := []string{comps[0].Result, comps[1].Result}
	assert.Contains(t, texts, "©")
	assert.Contains(t, texts, "®")
	for _, c := range comps {
		assert.Len(t, c.Remaining, 1)
	}
}

func TestCompletionsRestrictedToAvailableKeysyms(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(keymap.KeyMultiKey)
	e.Feed(uint32('o'))
	available := map[uint32]bool{uint32('c'): true}
	comps := e.Completions(available)
	require.Len(t, comps, 1)
	assert.Equal(t, "©", comps[0].Result)
}

func TestBackspaceTrimsSequence(t *testing.T) {
	table := NewTable()
	table.Swap(loadTestTrie(t))
	e := NewEngine(table)

	e.Feed(keymap.KeyMultiKey)
	e.Feed(uint32('o'))
	assert.True(t, e.Backspace())
	assert.Equal(t, 1, len(e.Prefix()))
	assert.True(t, e.Backspace())
	assert.False(t, e.InProgress())
	assert.False(t, e.Backspace())
}

func TestIncludeDirective(t *testing.T) {
	dir := t.TempDir()
	included := filepath.Join(dir, "extra")
	require.NoError(t, os.WriteFile(included, []byte("<Multi_key> <x> <x> : \"✗\"\n"), 0o644))
	main := filepath.Join(dir, "Compose")
	require.NoError(t, os.WriteFile(main,
		[]byte("include \""+included+"\"\n<Multi_key> <y> <y> : \"¥\"\n"), 0o644))

	trie := NewTrie()
	require.NoError(t, ParseFile(trie, main, ParseOptions{}))
	assert.Equal(t, 2, trie.Len())

	m, result := trie.Lookup(syms("Multi_key", "x", "x"))
	assert.Equal(t, Leaf, m)
	assert.Equal(t, "✗", result)
}

func TestTableSwapIsAtomic(t *testing.T) {
	table := NewTable()
	old := table.Load()
	next := NewTrie()
	next.Insert(syms("Multi_key", "a"), "x")
	table.Swap(next)
	assert.NotSame(t, old, table.Load())
	assert.Equal(t, 1, table.Load().Len())
}
