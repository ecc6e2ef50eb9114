package index

import (
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

const (
	FieldSeparator = "\t"
	DeltaSeparator = ":"
)

// Fields renders the forward record as docId, termId, pos1, pos2, ...
func (p ForwardPosting) Fields() []string {
	fields := make([]string, 0, len(p.Positions)+2)
	fields = append(fields, strconv.FormatInt(p.DocID, 10), strconv.FormatInt(p.TermID, 10))
	for _, pos := range p.Positions {
		fields = append(fields, strconv.Itoa(pos))
	}
	return fields
}

// ParseForward parses a doc_index record.
func ParseForward(line string) (ForwardPosting, error) {
	fields := strings.Split(line, FieldSeparator)
	if len(fields) < 3 {
		return ForwardPosting{}, apperrors.Newf(apperrors.ErrMalformedRecord, "forward record %q has no positions", line)
	}
	docID, err := parseID(fields[0])
	if err != nil {
		return ForwardPosting{}, err
	}
	termID, err := parseID(fields[1])
	if err != nil {
		return ForwardPosting{}, err
	}
	positions := make([]int, len(fields)-2)
	for i, f := range fields[2:] {
		pos, err := strconv.Atoi(f)
		if err != nil || pos < 1 {
			return ForwardPosting{}, apperrors.Newf(apperrors.ErrMalformedRecord, "bad position %q in forward record", f)
		}
		positions[i] = pos
	}
	return ForwardPosting{DocID: docID, TermID: termID, Positions: positions}, nil
}

// ForwardKey extracts (termId, docId) from a forward record without touching
// the position list.
func ForwardKey(line string) (termID int64, docID int64, err error) {
	docField, rest, ok := strings.Cut(line, FieldSeparator)
	if !ok {
		return 0, 0, apperrors.Newf(apperrors.ErrMalformedRecord, "forward record %q has no term id", line)
	}
	termField, _, _ := strings.Cut(rest, FieldSeparator)
	if docID, err = parseID(docField); err != nil {
		return 0, 0, err
	}
	if termID, err = parseID(termField); err != nil {
		return 0, 0, err
	}
	return termID, docID, nil
}

// CompareForward orders forward records by integer termId, then integer
// docId. Records must have passed ValidateForward.
func CompareForward(a, b string) int {
	aTerm, aDoc, _ := ForwardKey(a)
	bTerm, bDoc, _ := ForwardKey(b)
	switch {
	case aTerm < bTerm:
		return -1
	case aTerm > bTerm:
		return 1
	case aDoc < bDoc:
		return -1
	case aDoc > bDoc:
		return 1
	}
	return 0
}

// ValidateForward checks that line is a well formed forward record.
func ValidateForward(line string) error {
	_, _, _, err := CountForwardPositions(line)
	return err
}

// CountForwardPositions returns docId, termId and the number of positions of
// a forward record.
func CountForwardPositions(line string) (docID int64, termID int64, count int, err error) {
	termID, docID, err = ForwardKey(line)
	if err != nil {
		return 0, 0, 0, err
	}
	count = strings.Count(line, FieldSeparator) - 1
	if count < 1 {
		return 0, 0, 0, apperrors.Newf(apperrors.ErrMalformedRecord, "forward record %q has no positions", line)
	}
	return docID, termID, count, nil
}

// Fields renders the entry as termId, offset, corpusFrequency, documentFrequency.
func (e DirectoryEntry) Fields() []string {
	return []string{
		strconv.FormatInt(e.TermID, 10),
		strconv.FormatInt(e.Offset, 10),
		strconv.FormatInt(e.CorpusFrequency, 10),
		strconv.FormatInt(e.DocumentFrequency, 10),
	}
}

// ParseDirectoryEntry parses a term_info record.
func ParseDirectoryEntry(line string) (DirectoryEntry, error) {
	fields := strings.Split(line, FieldSeparator)
	if len(fields) != 4 {
		return DirectoryEntry{}, apperrors.Newf(apperrors.ErrMalformedRecord, "directory record %q needs 4 fields", line)
	}
	var values [4]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil || v < 0 {
			return DirectoryEntry{}, apperrors.Newf(apperrors.ErrMalformedRecord, "bad number %q in directory record", f)
		}
		values[i] = v
	}
	if values[0] < 1 {
		return DirectoryEntry{}, apperrors.Newf(apperrors.ErrMalformedRecord, "term id %d in directory record", values[0])
	}
	return DirectoryEntry{
		TermID:            values[0],
		Offset:            values[1],
		CorpusFrequency:   values[2],
		DocumentFrequency: values[3],
	}, nil
}

// parseNamed parses an "id \t name" record of doc_ids or term_ids.
func parseNamed(line string) (int64, string, error) {
	idField, name, ok := strings.Cut(line, FieldSeparator)
	if !ok {
		return 0, "", apperrors.Newf(apperrors.ErrMalformedRecord, "record %q has no name", line)
	}
	id, err := parseID(idField)
	if err != nil {
		return 0, "", err
	}
	return id, name, nil
}

func parseID(field string) (int64, error) {
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.Newf(apperrors.ErrMalformedRecord, "bad id %q", field)
	}
	return id, nil
}
