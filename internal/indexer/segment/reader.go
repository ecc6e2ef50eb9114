package segment

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Reader decodes postings records by byte offset. It is safe for concurrent
// use; every read goes through ReadAt.
type Reader struct {
	file     *os.File
	filePath string
	size     int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Storage("opening", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Storage("stat", path, err)
	}
	return &Reader{file: f, filePath: path, size: info.Size()}, nil
}

// Record returns the raw postings record starting at offset, without its
// terminator.
func (r *Reader) Record(offset int64) (string, error) {
	if offset < 0 || offset >= r.size {
		return "", apperrors.Newf(apperrors.ErrMalformedRecord, "offset %d outside %s (%d bytes)", offset, r.filePath, r.size)
	}
	br := bufio.NewReaderSize(io.NewSectionReader(r.file, offset, r.size-offset), 16*1024)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", apperrors.Storage("reading", r.filePath, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Frequencies decodes the record at offset into per-document occurrence
// counts without materialising positions.
func (r *Reader) Frequencies(offset int64) (int64, index.PostingList, error) {
	record, err := r.Record(offset)
	if err != nil {
		return 0, nil, err
	}
	return DecodeFrequencies(record)
}

// Positions decodes the record at offset with absolute positions.
func (r *Reader) Positions(offset int64) (int64, index.PostingList, error) {
	record, err := r.Record(offset)
	if err != nil {
		return 0, nil, err
	}
	return DecodePositions(record)
}

// ReadEntry decodes the postings of a directory entry and checks that the
// record belongs to that term.
func (r *Reader) ReadEntry(e index.DirectoryEntry, withPositions bool) (index.PostingList, error) {
	var termID int64
	var list index.PostingList
	var err error
	if withPositions {
		termID, list, err = r.Positions(e.Offset)
	} else {
		termID, list, err = r.Frequencies(e.Offset)
	}
	if err != nil {
		return nil, err
	}
	if termID != e.TermID {
		return nil, apperrors.Newf(apperrors.ErrMalformedRecord, "offset %d holds term %d, directory says %d", e.Offset, termID, e.TermID)
	}
	return list, nil
}

func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// DecodeFrequencies walks the delta entries of one record, summing document
// deltas and counting entries per document.
func DecodeFrequencies(record string) (int64, index.PostingList, error) {
	termID, entries, err := splitRecord(record)
	if err != nil {
		return 0, nil, err
	}
	list := make(index.PostingList, 0, 8)
	var docID int64
	for _, entry := range entries {
		deltaField, _, ok := strings.Cut(entry, index.DeltaSeparator)
		if !ok {
			return 0, nil, malformedEntry(termID, entry)
		}
		delta, err := strconv.ParseInt(deltaField, 10, 64)
		if err != nil || delta < 0 {
			return 0, nil, malformedEntry(termID, entry)
		}
		if delta == 0 {
			if len(list) == 0 {
				return 0, nil, malformedEntry(termID, entry)
			}
			list[len(list)-1].Frequency++
			continue
		}
		docID += delta
		list = append(list, index.Posting{DocID: docID, Frequency: 1})
	}
	return termID, list, nil
}

// DecodePositions is DecodeFrequencies with absolute positions restored.
func DecodePositions(record string) (int64, index.PostingList, error) {
	termID, entries, err := splitRecord(record)
	if err != nil {
		return 0, nil, err
	}
	list := make(index.PostingList, 0, 8)
	var docID int64
	position := 0
	for _, entry := range entries {
		deltaField, valueField, ok := strings.Cut(entry, index.DeltaSeparator)
		if !ok {
			return 0, nil, malformedEntry(termID, entry)
		}
		delta, err := strconv.ParseInt(deltaField, 10, 64)
		if err != nil || delta < 0 {
			return 0, nil, malformedEntry(termID, entry)
		}
		value, err := strconv.Atoi(valueField)
		if err != nil || value < 0 {
			return 0, nil, malformedEntry(termID, entry)
		}
		if delta == 0 {
			if len(list) == 0 {
				return 0, nil, malformedEntry(termID, entry)
			}
			position += value
			last := &list[len(list)-1]
			last.Frequency++
			last.Positions = append(last.Positions, position)
			continue
		}
		docID += delta
		position = value
		list = append(list, index.Posting{DocID: docID, Frequency: 1, Positions: []int{position}})
	}
	return termID, list, nil
}

func splitRecord(record string) (int64, []string, error) {
	fields := strings.Split(record, index.FieldSeparator)
	termID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || termID < 1 {
		return 0, nil, apperrors.Newf(apperrors.ErrMalformedRecord, "postings record starts with %q", fields[0])
	}
	if len(fields) < 2 {
		return 0, nil, apperrors.Newf(apperrors.ErrMalformedRecord, "postings record for term %d is empty", termID)
	}
	return termID, fields[1:], nil
}

func malformedEntry(termID int64, entry string) error {
	return apperrors.Newf(apperrors.ErrMalformedRecord, "bad postings entry %q for term %d", entry, termID)
}
