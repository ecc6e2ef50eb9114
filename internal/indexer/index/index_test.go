package index

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardRecordRoundTrip(t *testing.T) {
	fp := ForwardPosting{DocID: 12, TermID: 3, Positions: []int{2, 9, 40}}
	line := strings.Join(fp.Fields(), FieldSeparator)
	assert.Equal(t, "12\t3\t2\t9\t40", line)

	parsed, err := ParseForward(line)
	require.NoError(t, err)
	assert.Equal(t, fp, parsed)

	termID, docID, err := ForwardKey(line)
	require.NoError(t, err)
	assert.Equal(t, int64(3), termID)
	assert.Equal(t, int64(12), docID)

	_, _, count, err := CountForwardPositions(line)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParseForwardRejectsMalformed(t *testing.T) {
	for _, line := range []string{"1\t2", "x\t2\t3", "1\t0\t3", "1\t2\tfoo", "1\t2\t0"} {
		_, err := ParseForward(line)
		assert.True(t, apperrors.Is(err, apperrors.ErrMalformedRecord), line)
	}
}

func TestParseDirectoryEntry(t *testing.T) {
	e, err := ParseDirectoryEntry("7\t1024\t15\t4")
	require.NoError(t, err)
	assert.Equal(t, DirectoryEntry{TermID: 7, Offset: 1024, CorpusFrequency: 15, DocumentFrequency: 4}, e)
	assert.Equal(t, []string{"7", "1024", "15", "4"}, e.Fields())

	_, err = ParseDirectoryEntry("7\t1024\t15")
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedRecord))
}

func TestTableWriterTracksOffsets(t *testing.T) {
	var buf bytes.Buffer
	w := NewTableWriter(&buf, "\r\n")

	require.NoError(t, w.WriteRecord("1", "alpha"))
	assert.Equal(t, int64(9), w.Offset())
	require.NoError(t, w.WriteString("2"))
	require.NoError(t, w.WriteString("\tbeta"))
	require.NoError(t, w.EndRecord())
	require.NoError(t, w.Close())

	assert.Equal(t, "1\talpha\r\n2\tbeta\r\n", buf.String())
	assert.Equal(t, int64(buf.Len()), w.Offset())
}

func TestReadRecordsStripsTerminators(t *testing.T) {
	var got []string
	err := ReadRecords(strings.NewReader("a\r\n\nb\nc"), func(line string) error {
		got = append(got, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTermTable(t *testing.T) {
	tt := NewTermTable()
	id, minted := tt.Intern("cat")
	assert.Equal(t, int64(1), id)
	assert.True(t, minted)
	tt.Intern("car")
	tt.Intern("dog")
	id, minted = tt.Intern("cat")
	assert.Equal(t, int64(1), id)
	assert.False(t, minted)

	surface, ok := tt.Surface(3)
	assert.True(t, ok)
	assert.Equal(t, "dog", surface)
	_, ok = tt.Surface(4)
	assert.False(t, ok)

	var prefixed []Term
	tt.WalkPrefix("ca", func(term Term) bool {
		prefixed = append(prefixed, term)
		return true
	})
	assert.Equal(t, []Term{{ID: 2, Surface: "car"}, {ID: 1, Surface: "cat"}}, prefixed)
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	layout := Layout{Dir: dir}
	require.NoError(t, os.WriteFile(layout.DocIDs(), []byte("1\ta.html\r\n2\tb.html\r\n"), 0o644))
	require.NoError(t, os.WriteFile(layout.TermIDs(), []byte("1\tcat\n2\tsat\n"), 0o644))

	docs, err := LoadDocumentTable(layout.DocIDs())
	require.NoError(t, err)
	assert.Equal(t, 2, docs.Len())
	ref, _ := docs.Reference(2)
	assert.Equal(t, "b.html", ref)
	id, ok := docs.Lookup("a.html")
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	terms, err := LoadTermTable(layout.TermIDs())
	require.NoError(t, err)
	id, ok = terms.ID("sat")
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestLoadDocumentTableRejectsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocIDsFile)
	require.NoError(t, os.WriteFile(path, []byte("1\ta\n3\tc\n"), 0o644))

	_, err := LoadDocumentTable(path)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedRecord))
}

func TestLoadMissingTableIsStorageError(t *testing.T) {
	_, err := LoadTermTable(filepath.Join(t.TempDir(), TermIDsFile))
	assert.True(t, apperrors.IsStorage(err))
}

func TestLayoutVerify(t *testing.T) {
	l := Layout{Dir: t.TempDir()}
	for _, p := range []string{l.DocIDs(), l.TermIDs(), l.Forward(), l.Postings()} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
	assert.ErrorContains(t, l.Verify(), DirectoryFile)

	require.NoError(t, os.WriteFile(l.Directory(), nil, 0o644))
	assert.NoError(t, l.Verify())
}
