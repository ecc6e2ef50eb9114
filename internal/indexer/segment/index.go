// Package segment writes and reads the persisted inverted index: the
// delta-encoded postings file and the term directory that addresses it.
package segment

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Index bundles the read side of a built index. It is read-only and safe for
// concurrent readers.
type Index struct {
	Layout    index.Layout
	Documents *index.DocumentTable
	Terms     *index.TermTable
	Directory *Directory
	Postings  *Reader
}

// Open loads the name tables and directory of the index in dir and opens its
// postings file.
func Open(dir string) (*Index, error) {
	layout := index.Layout{Dir: dir}
	docs, err := index.LoadDocumentTable(layout.DocIDs())
	if err != nil {
		return nil, fmt.Errorf("loading document table: %w", err)
	}
	terms, err := index.LoadTermTable(layout.TermIDs())
	if err != nil {
		return nil, fmt.Errorf("loading term table: %w", err)
	}
	directory, err := LoadDirectory(layout.Directory())
	if err != nil {
		return nil, fmt.Errorf("loading term directory: %w", err)
	}
	if directory.Len() != terms.Len() {
		return nil, apperrors.Newf(apperrors.ErrMalformedRecord, "directory has %d entries for %d terms", directory.Len(), terms.Len())
	}
	postings, err := OpenReader(layout.Postings())
	if err != nil {
		return nil, fmt.Errorf("opening postings: %w", err)
	}
	return &Index{
		Layout:    layout,
		Documents: docs,
		Terms:     terms,
		Directory: directory,
		Postings:  postings,
	}, nil
}

// LookupTerm resolves a normalised surface to its directory entry.
func (i *Index) LookupTerm(surface string) (index.DirectoryEntry, error) {
	id, ok := i.Terms.ID(surface)
	if !ok {
		return index.DirectoryEntry{}, apperrors.Newf(apperrors.ErrTermNotFound, "term %q", surface)
	}
	entry, ok := i.Directory.Lookup(id)
	if !ok {
		return index.DirectoryEntry{}, apperrors.Newf(apperrors.ErrTermNotFound, "term %q has no directory entry", surface)
	}
	return entry, nil
}

func (i *Index) Close() error {
	return i.Postings.Close()
}
