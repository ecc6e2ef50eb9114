package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStemmer struct{}

func (failingStemmer) Stem(word string) (string, error) {
	return "", errors.New("no stem")
}

func TestTokenizePositionsCountStopWords(t *testing.T) {
	n := New(NewStopWords("the"), nil)

	tokens := n.Tokenize("The cat sat on the mat")

	require.Len(t, tokens, 4)
	assert.Equal(t, Token{Term: "cat", Position: 2}, tokens[0])
	assert.Equal(t, Token{Term: "sat", Position: 3}, tokens[1])
	assert.Equal(t, Token{Term: "on", Position: 4}, tokens[2])
	assert.Equal(t, Token{Term: "mat", Position: 6}, tokens[3])
}

func TestTokenizeKeepsEmbeddedDots(t *testing.T) {
	n := New(nil, nil)

	terms := n.Terms("Pi is 3.14, per U.S.A records.")

	assert.Contains(t, terms, "3.14")
	assert.Contains(t, terms, "u.s.a")
	assert.NotContains(t, terms, "")
}

func TestTokenizeStems(t *testing.T) {
	n := New(nil, nil)

	assert.Equal(t, []string{"run", "cat"}, n.Terms("running cats"))
}

func TestNormalize(t *testing.T) {
	n := New(NewStopWords("and"), nil)

	stem, ok := n.Normalize("Running")
	assert.True(t, ok)
	assert.Equal(t, "run", stem)

	_, ok = n.Normalize("AND")
	assert.False(t, ok)

	_, ok = n.Normalize("")
	assert.False(t, ok)
}

func TestStemFailureFallsBackToLowerCase(t *testing.T) {
	n := New(nil, failingStemmer{})

	assert.Equal(t, []string{"running"}, n.Terms("RUNNING"))
}

func TestLoadStopWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoplist.txt")
	require.NoError(t, os.WriteFile(path, []byte("The\nand  of\r\n\nA\n"), 0o644))

	set, err := LoadStopWords(path)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	for _, w := range []string{"the", "and", "of", "a"} {
		assert.True(t, set.Contains(w), w)
	}
}

func TestLoadStopWordsMissingFile(t *testing.T) {
	set, err := LoadStopWords(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStopListUnreadable))
	assert.Equal(t, 0, set.Len())
}

func TestLoadStopWordsEmptyPath(t *testing.T) {
	set, err := LoadStopWords("")
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func BenchmarkTokenize(b *testing.B) {
	n := New(NewStopWords("the", "a", "of", "and", "to", "in"), nil)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog in a field of 3.5 acres. ", 200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Tokenize(text)
	}
}
