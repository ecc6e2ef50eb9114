package index

import (
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/armon/go-radix"
)

// DocumentTable maps dense document ids to references. Slot id-1 holds the
// reference of document id.
type DocumentTable struct {
	refs  []string
	byRef map[string]int64
}

func NewDocumentTable() *DocumentTable {
	return &DocumentTable{byRef: make(map[string]int64)}
}

// Append mints the next document id for ref.
func (t *DocumentTable) Append(ref string) Document {
	t.refs = append(t.refs, ref)
	id := int64(len(t.refs))
	if _, seen := t.byRef[ref]; !seen {
		t.byRef[ref] = id
	}
	return Document{ID: id, Reference: ref}
}

func (t *DocumentTable) Reference(id int64) (string, bool) {
	if id < 1 || id > int64(len(t.refs)) {
		return "", false
	}
	return t.refs[id-1], true
}

// Lookup returns the lowest id recorded for ref.
func (t *DocumentTable) Lookup(ref string) (int64, bool) {
	id, ok := t.byRef[ref]
	return id, ok
}

func (t *DocumentTable) Len() int {
	return len(t.refs)
}

// LoadDocumentTable reads doc_ids. Ids must be dense and in ascending order.
func LoadDocumentTable(path string) (*DocumentTable, error) {
	t := NewDocumentTable()
	err := ReadRecordsFile(path, func(line string) error {
		id, ref, err := parseNamed(line)
		if err != nil {
			return err
		}
		if id != int64(t.Len())+1 {
			return apperrors.Newf(apperrors.ErrMalformedRecord, "document id %d out of sequence, expected %d", id, t.Len()+1)
		}
		t.Append(ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TermTable is the bijection between term ids and stemmed surfaces. Surfaces
// are kept in a radix tree so the lexicon can also be walked by prefix.
type TermTable struct {
	surfaces []string
	lexicon  *radix.Tree
}

func NewTermTable() *TermTable {
	return &TermTable{lexicon: radix.New()}
}

// Intern returns the id of surface, minting the next id when it is new.
func (t *TermTable) Intern(surface string) (int64, bool) {
	if v, ok := t.lexicon.Get(surface); ok {
		return v.(int64), false
	}
	t.surfaces = append(t.surfaces, surface)
	id := int64(len(t.surfaces))
	t.lexicon.Insert(surface, id)
	return id, true
}

func (t *TermTable) ID(surface string) (int64, bool) {
	v, ok := t.lexicon.Get(surface)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

func (t *TermTable) Surface(id int64) (string, bool) {
	if id < 1 || id > int64(len(t.surfaces)) {
		return "", false
	}
	return t.surfaces[id-1], true
}

func (t *TermTable) Len() int {
	return len(t.surfaces)
}

// WalkPrefix visits terms whose surface starts with prefix in lexical order
// until fn returns false.
func (t *TermTable) WalkPrefix(prefix string, fn func(Term) bool) {
	t.lexicon.WalkPrefix(prefix, func(s string, v interface{}) bool {
		return !fn(Term{ID: v.(int64), Surface: s})
	})
}

// LoadTermTable reads term_ids. Ids must be dense, ascending and unique per
// surface.
func LoadTermTable(path string) (*TermTable, error) {
	t := NewTermTable()
	err := ReadRecordsFile(path, func(line string) error {
		id, surface, err := parseNamed(line)
		if err != nil {
			return err
		}
		minted, isNew := t.Intern(surface)
		if !isNew || minted != id {
			return apperrors.Newf(apperrors.ErrMalformedRecord, "term %q has id %s, expected %d", surface, strconv.FormatInt(id, 10), t.Len())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
