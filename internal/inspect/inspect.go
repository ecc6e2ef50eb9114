// Package inspect answers point lookups against a built index: term and
// document metadata, a term's positions inside one document, the documents
// matching a set of words, and vocabulary prefix scans.
package inspect

import (
	"fmt"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/RoaringBitmap/roaring"
)

type TermInfo struct {
	ID                int64  `json:"id"`
	Surface           string `json:"surface"`
	DocumentFrequency int64  `json:"document_frequency"`
	CorpusFrequency   int64  `json:"corpus_frequency"`
	Offset            int64  `json:"offset"`
}

type DocumentInfo struct {
	ID            int64  `json:"id"`
	Reference     string `json:"reference"`
	DistinctTerms int    `json:"distinct_terms"`
	TotalTerms    int64  `json:"total_terms"`
}

type Occurrence struct {
	Term      TermInfo     `json:"term"`
	Document  DocumentInfo `json:"document"`
	Frequency int          `json:"frequency"`
	Positions []int        `json:"positions"`
}

type DocumentRef struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
}

// Match selects how Documents combines the document sets of several words.
type Match string

const (
	MatchAny Match = "any"
	MatchAll Match = "all"
)

func ParseMatch(s string) (Match, error) {
	switch Match(strings.ToLower(strings.TrimSpace(s))) {
	case MatchAny, "":
		return MatchAny, nil
	case MatchAll:
		return MatchAll, nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, "match mode %q", s)
}

// DocumentSet is the result of Documents. Count is the size of the whole
// set even when Documents was cut by a limit.
type DocumentSet struct {
	Words     []string      `json:"words"`
	Match     Match         `json:"match"`
	Missing   []string      `json:"missing,omitempty"`
	Count     uint64        `json:"count"`
	Documents []DocumentRef `json:"documents"`
}

type Inspector struct {
	idx        *segment.Index
	normalizer *tokenizer.Normalizer
}

// New creates an Inspector. Raw words are normalised with n before lookup,
// so n must match the normaliser the index was built with.
func New(idx *segment.Index, n *tokenizer.Normalizer) *Inspector {
	return &Inspector{idx: idx, normalizer: n}
}

// Term describes the term a raw word normalises to.
func (i *Inspector) Term(word string) (TermInfo, error) {
	surface, ok := i.normalizer.Normalize(word)
	if !ok {
		return TermInfo{}, apperrors.Newf(apperrors.ErrTermNotFound, "%q is a stop word or not a word", word)
	}
	return i.termInfo(surface)
}

func (i *Inspector) termInfo(surface string) (TermInfo, error) {
	entry, err := i.idx.LookupTerm(surface)
	if err != nil {
		return TermInfo{}, err
	}
	return TermInfo{
		ID:                entry.TermID,
		Surface:           surface,
		DocumentFrequency: entry.DocumentFrequency,
		CorpusFrequency:   entry.CorpusFrequency,
		Offset:            entry.Offset,
	}, nil
}

// Document describes the document with reference ref. When a reference was
// indexed more than once the lowest id is reported.
func (i *Inspector) Document(ref string) (DocumentInfo, error) {
	id, ok := i.idx.Documents.Lookup(ref)
	if !ok {
		return DocumentInfo{}, apperrors.Newf(apperrors.ErrDocumentNotFound, "document %q", ref)
	}
	info := DocumentInfo{ID: id, Reference: ref}
	err := index.ReadRecordsFile(i.idx.Layout.Forward(), func(line string) error {
		docID, _, count, err := index.CountForwardPositions(line)
		if err != nil {
			return err
		}
		if docID == id {
			info.DistinctTerms++
			info.TotalTerms += int64(count)
		}
		return nil
	})
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("scanning forward index: %w", err)
	}
	return info, nil
}

// TermInDocument reports how often and where word occurs in document ref.
func (i *Inspector) TermInDocument(word string, ref string) (Occurrence, error) {
	term, err := i.Term(word)
	if err != nil {
		return Occurrence{}, err
	}
	doc, err := i.Document(ref)
	if err != nil {
		return Occurrence{}, err
	}
	entry, _ := i.idx.Directory.Lookup(term.ID)
	list, err := i.idx.Postings.ReadEntry(entry, true)
	if err != nil {
		return Occurrence{}, fmt.Errorf("reading postings of %q: %w", term.Surface, err)
	}
	for _, p := range list {
		if p.DocID == doc.ID {
			return Occurrence{Term: term, Document: doc, Frequency: p.Frequency, Positions: p.Positions}, nil
		}
	}
	return Occurrence{}, apperrors.Newf(apperrors.ErrTermNotFound, "term %q does not occur in %q", term.Surface, ref)
}

// TermDocuments returns the set of documents containing word. Document ids
// above math.MaxUint32 cannot be held in the set and are reported as an
// error.
func (i *Inspector) TermDocuments(word string) (*roaring.Bitmap, error) {
	term, err := i.Term(word)
	if err != nil {
		return nil, err
	}
	entry, _ := i.idx.Directory.Lookup(term.ID)
	list, err := i.idx.Postings.ReadEntry(entry, false)
	if err != nil {
		return nil, fmt.Errorf("reading postings of %q: %w", term.Surface, err)
	}
	docs := roaring.New()
	for _, p := range list {
		if p.DocID < 0 || p.DocID > math.MaxUint32 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"document id %d of term %q is outside the bitmap range", p.DocID, term.Surface)
		}
		docs.Add(uint32(p.DocID))
	}
	return docs, nil
}

// Documents lists, in ascending id order, the documents containing any or
// all of words. Words that are stop words or absent from the vocabulary are
// reported in Missing; with MatchAll a missing word empties the set. At most
// limit documents are listed, all of them when limit <= 0.
func (i *Inspector) Documents(words []string, match Match, limit int) (DocumentSet, error) {
	set := DocumentSet{Words: words, Match: match, Documents: []DocumentRef{}}
	bitmaps := make([]*roaring.Bitmap, 0, len(words))
	for _, w := range words {
		docs, err := i.TermDocuments(w)
		if err != nil {
			if apperrors.IsLookupMiss(err) {
				set.Missing = append(set.Missing, w)
				continue
			}
			return DocumentSet{}, err
		}
		bitmaps = append(bitmaps, docs)
	}
	if len(bitmaps) == 0 {
		return DocumentSet{}, apperrors.Newf(apperrors.ErrTermNotFound, "none of %q occur in the corpus", words)
	}

	var docs *roaring.Bitmap
	switch {
	case match == MatchAll && len(set.Missing) > 0:
		docs = roaring.New()
	case match == MatchAll:
		docs = roaring.FastAnd(bitmaps...)
	default:
		docs = roaring.FastOr(bitmaps...)
	}

	set.Count = docs.GetCardinality()
	it := docs.Iterator()
	for it.HasNext() && (limit <= 0 || len(set.Documents) < limit) {
		id := int64(it.Next())
		ref, _ := i.idx.Documents.Reference(id)
		set.Documents = append(set.Documents, DocumentRef{ID: id, Reference: ref})
	}
	return set, nil
}

// Prefix lists up to limit terms whose stemmed surface starts with prefix,
// in lexical order. limit <= 0 lists all.
func (i *Inspector) Prefix(prefix string, limit int) ([]TermInfo, error) {
	var (
		terms []TermInfo
		err   error
	)
	i.idx.Terms.WalkPrefix(prefix, func(t index.Term) bool {
		var info TermInfo
		info, err = i.termInfo(t.Surface)
		if err != nil {
			return false
		}
		terms = append(terms, info)
		return limit <= 0 || len(terms) < limit
	})
	if err != nil {
		return nil, err
	}
	return terms, nil
}
