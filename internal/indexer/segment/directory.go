package segment

import (
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Directory is the term directory held as a dense array; entry id-1 belongs to
// term id.
type Directory struct {
	entries          []index.DirectoryEntry
	totalOccurrences int64
}

// NewDirectory requires entries ordered by term id starting at 1 with no gaps.
func NewDirectory(entries []index.DirectoryEntry) (*Directory, error) {
	d := &Directory{entries: make([]index.DirectoryEntry, 0, len(entries))}
	for _, e := range entries {
		if err := d.add(e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func LoadDirectory(path string) (*Directory, error) {
	d := &Directory{}
	err := index.ReadRecordsFile(path, func(line string) error {
		e, err := index.ParseDirectoryEntry(line)
		if err != nil {
			return err
		}
		return d.add(e)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) add(e index.DirectoryEntry) error {
	if e.TermID != int64(len(d.entries))+1 {
		return apperrors.Newf(apperrors.ErrMalformedRecord, "directory entry for term %d out of sequence, expected %d", e.TermID, len(d.entries)+1)
	}
	d.entries = append(d.entries, e)
	d.totalOccurrences += e.CorpusFrequency
	return nil
}

func (d *Directory) Lookup(termID int64) (index.DirectoryEntry, bool) {
	if termID < 1 || termID > int64(len(d.entries)) {
		return index.DirectoryEntry{}, false
	}
	return d.entries[termID-1], true
}

func (d *Directory) Len() int {
	return len(d.entries)
}

// TotalOccurrences is the sum of corpus frequencies over all terms.
func (d *Directory) TotalOccurrences() int64 {
	return d.totalOccurrences
}
