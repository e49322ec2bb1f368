package emoji

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, opts Options) *Index {
	t.Helper()
	idx, err := NewIndex(opts)
	require.NoError(t, err)
	require.Greater(t, idx.Len(), 0)
	return idx
}

func TestQueryExactKeyword(t *testing.T) {
	idx := newTestIndex(t, Options{})

	hits := idx.Query("camel", 10)
	require.NotEmpty(t, hits)
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Entry.Sequence
	}
	assert.Contains(t, texts, "🐫")
	assert.Contains(t, texts, "🐪")
	// The dromedary carries "camel" as a name, not only a keyword, and
	// both rank above fuzzy-only matches.
	assert.Contains(t, texts[:2], "🐪")
}

func TestQueryMultiTokenIntersection(t *testing.T) {
	idx := newTestIndex(t, Options{})

	hits := idx.Query("dog face", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "🐶", hits[0].Entry.Sequence)

	// A token matching nothing empties the intersection.
	assert.Empty(t, idx.Query("dog zzzznothing", 10))
}

func TestQueryPrefixAndFuzzy(t *testing.T) {
	idx := newTestIndex(t, Options{})

	// Prefix match.
	hits := idx.Query("came", 10)
	require.NotEmpty(t, hits)
	found := false
	for _, h := range hits {
		if h.Entry.Sequence == "🐫" {
			found = true
		}
	}
	assert.True(t, found, "prefix came should reach the camel")

	// One edit away.
	hits = idx.Query("camle", 10)
	found = false
	for _, h := range hits {
		if h.Entry.Sequence == "🐫" || h.Entry.Sequence == "🐪" {
			found = true
		}
	}
	assert.True(t, found, "edit-distance match should reach a camel")
}

func TestQueryScoresAreNonIncreasing(t *testing.T) {
	idx := newTestIndex(t, Options{})
	hits := idx.Query("face", 25)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestQueryAccentFolding(t *testing.T) {
	idx := newTestIndex(t, Options{})
	// "Fußball" keyword reaches the soccer ball via folded "fussball"?
	// ß folds to ß (not ss) under NFKD, so query the umlaut case
	// instead: "Bücher" matches with "bucher".
	hits := idx.Query("bucher", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "📚", hits[0].Entry.Sequence)
}

func TestQueryCodePoint(t *testing.T) {
	idx := newTestIndex(t, Options{})

	hits := idx.Query("1F40D", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "🐍", hits[0].Entry.Sequence)
	assert.Equal(t, "U+1F40D", hits[0].Name)

	hits = idx.Query("00e9", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "é", hits[0].Entry.Sequence)

	// Too short or not hex: no code-point interpretation.
	for _, q := range []string{"1f4", "xyzw"} {
		for _, h := range idx.Query(q, 10) {
			assert.NotEqual(t, codePointScore, h.Score, "query %q", q)
		}
	}
}

func TestRelated(t *testing.T) {
	idx := newTestIndex(t, Options{})

	hits := idx.Related("🐫", 10)
	require.NotEmpty(t, hits)
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Entry.Sequence
	}
	// The dromedary shares camel/hump/desert/animal keywords plus the
	// category; it must be first.
	assert.Equal(t, "🐪", texts[0])
	assert.NotContains(t, texts, "🐫")

	assert.Empty(t, idx.Related("never-indexed", 10))
}

func TestRomanizedKeywords(t *testing.T) {
	idx := newTestIndex(t, Options{Romanize: true})

	// ラクダ romanizes to rakuda; the romanized form ranks below a
	// plain-name hit but still finds the camel.
	hits := idx.Query("rakuda", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "🐫", hits[0].Entry.Sequence)
}

func TestRomanizeKana(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"らくだ", "rakuda"},
		{"ねこ", "neko"},
		{"にっこり", "nikkori"},
		{"はーと", "hato"},
		{"きょう", "kyou"},
		{"ラクダ", "rakuda"},
		{"camel", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, romanizeKana(tt.in), "romanizeKana(%q)", tt.in)
	}
}

func TestUnicodeDataAll(t *testing.T) {
	plain := newTestIndex(t, Options{})
	extended := newTestIndex(t, Options{UnicodeDataAll: true})
	assert.Greater(t, extended.Len(), plain.Len())

	hits := extended.Query("interrobang", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "‽", hits[0].Entry.Sequence)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"thumbs", "up"}, Tokenize("Thumbs_Up"))
	assert.Equal(t, []string{"creme", "brulee"}, Tokenize("Crème  Brûlée"))
	assert.Empty(t, Tokenize("  _ "))
}

func TestAnnotation(t *testing.T) {
	idx := newTestIndex(t, Options{})
	for i := range idx.entries {
		if idx.entries[i].Sequence == "👍" {
			ann := idx.entries[i].Annotation()
			assert.Contains(t, ann, "U+1F44D")
			assert.Contains(t, ann, "skin tones")
			return
		}
	}
	t.Fatal("thumbs up entry missing")
}
