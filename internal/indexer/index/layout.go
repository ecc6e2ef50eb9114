package index

import (
	"fmt"
	"os"
	"path/filepath"
)

// File names of a persisted index.
const (
	DocIDsFile        = "doc_ids.txt"
	TermIDsFile       = "term_ids.txt"
	ForwardFile       = "doc_index.txt"
	SortedForwardFile = "sorted_doc_index.txt"
	PostingsFile      = "term_index.txt"
	DirectoryFile     = "term_info.txt"
)

// Layout resolves index file paths inside one directory.
type Layout struct {
	Dir string
}

func (l Layout) DocIDs() string        { return filepath.Join(l.Dir, DocIDsFile) }
func (l Layout) TermIDs() string       { return filepath.Join(l.Dir, TermIDsFile) }
func (l Layout) Forward() string       { return filepath.Join(l.Dir, ForwardFile) }
func (l Layout) SortedForward() string { return filepath.Join(l.Dir, SortedForwardFile) }
func (l Layout) Postings() string      { return filepath.Join(l.Dir, PostingsFile) }
func (l Layout) Directory() string     { return filepath.Join(l.Dir, DirectoryFile) }

// Verify fails when a file the ranker reads is missing from the directory.
func (l Layout) Verify() error {
	for _, p := range []string{l.DocIDs(), l.TermIDs(), l.Forward(), l.Postings(), l.Directory()} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("index file %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
