package inspect

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/indextest"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInspector(t *testing.T) *Inspector {
	t.Helper()
	idx := indextest.Build(t, []string{"the"},
		source.Document{Reference: "doc1", Text: "the cat sat on the cat"},
		source.Document{Reference: "doc2", Text: "the cat ran"},
		source.Document{Reference: "doc3", Text: "category catalog"},
	)
	return New(idx, tokenizer.New(tokenizer.NewStopWords("the"), nil))
}

func TestTerm(t *testing.T) {
	in := newInspector(t)

	info, err := in.Term("Cats")
	require.NoError(t, err)
	assert.Equal(t, TermInfo{ID: 1, Surface: "cat", DocumentFrequency: 2, CorpusFrequency: 3, Offset: 0}, info)

	_, err = in.Term("dog")
	assert.True(t, apperrors.IsLookupMiss(err))
	_, err = in.Term("the")
	assert.True(t, apperrors.IsLookupMiss(err))
}

func TestDocument(t *testing.T) {
	in := newInspector(t)

	info, err := in.Document("doc1")
	require.NoError(t, err)
	assert.Equal(t, DocumentInfo{ID: 1, Reference: "doc1", DistinctTerms: 3, TotalTerms: 4}, info)

	_, err = in.Document("doc9")
	assert.True(t, apperrors.IsLookupMiss(err))
}

func TestTermInDocument(t *testing.T) {
	in := newInspector(t)

	occ, err := in.TermInDocument("cat", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, occ.Frequency)
	assert.Equal(t, []int{2, 6}, occ.Positions)
	assert.Equal(t, int64(1), occ.Document.ID)

	_, err = in.TermInDocument("sat", "doc2")
	assert.True(t, apperrors.IsLookupMiss(err))
}

func TestTermDocuments(t *testing.T) {
	in := newInspector(t)

	docs, err := in.TermDocuments("cat")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, docs.ToArray())
}

func TestDocumentsAnyAndAll(t *testing.T) {
	in := newInspector(t)

	either, err := in.Documents([]string{"sat", "ran"}, MatchAny, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), either.Count)
	assert.Equal(t, []DocumentRef{{ID: 1, Reference: "doc1"}, {ID: 2, Reference: "doc2"}}, either.Documents)

	all, err := in.Documents([]string{"cat", "ran"}, MatchAll, 0)
	require.NoError(t, err)
	assert.Equal(t, []DocumentRef{{ID: 2, Reference: "doc2"}}, all.Documents)

	none, err := in.Documents([]string{"sat", "ran"}, MatchAll, 0)
	require.NoError(t, err)
	assert.Zero(t, none.Count)
	assert.Empty(t, none.Documents)
}

func TestDocumentsLimitKeepsCount(t *testing.T) {
	in := newInspector(t)

	set, err := in.Documents([]string{"cat", "catalog"}, MatchAny, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), set.Count)
	assert.Equal(t, []DocumentRef{{ID: 1, Reference: "doc1"}, {ID: 2, Reference: "doc2"}}, set.Documents)
}

func TestDocumentsMissingWords(t *testing.T) {
	in := newInspector(t)

	set, err := in.Documents([]string{"cat", "dog", "the"}, MatchAny, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "the"}, set.Missing)
	assert.Equal(t, uint64(2), set.Count)

	strict, err := in.Documents([]string{"cat", "dog"}, MatchAll, 0)
	require.NoError(t, err)
	assert.Zero(t, strict.Count)

	_, err = in.Documents([]string{"dog"}, MatchAny, 0)
	assert.True(t, apperrors.IsLookupMiss(err))
}

func TestParseMatch(t *testing.T) {
	m, err := ParseMatch("ALL")
	require.NoError(t, err)
	assert.Equal(t, MatchAll, m)

	m, err = ParseMatch("")
	require.NoError(t, err)
	assert.Equal(t, MatchAny, m)

	_, err = ParseMatch("some")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPrefix(t *testing.T) {
	in := newInspector(t)

	terms, err := in.Prefix("cat", 0)
	require.NoError(t, err)
	surfaces := make([]string, len(terms))
	for i, term := range terms {
		surfaces[i] = term.Surface
	}
	assert.Equal(t, []string{"cat", "catalog", "categori"}, surfaces)

	limited, err := in.Prefix("cat", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := in.Prefix("zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
