package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// TableWriter appends line-terminated, tab-separated records and tracks the
// byte offset of the next write.
type TableWriter struct {
	file       *os.File
	buf        *bufio.Writer
	path       string
	terminator string
	offset     int64
}

// CreateTable truncates or creates the file at path.
func CreateTable(path string, terminator string) (*TableWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apperrors.Storage("creating", path, err)
	}
	t := NewTableWriter(f, terminator)
	t.file = f
	t.path = path
	return t, nil
}

// NewTableWriter wraps w. Close flushes but does not close w.
func NewTableWriter(w io.Writer, terminator string) *TableWriter {
	if terminator == "" {
		terminator = "\n"
	}
	return &TableWriter{
		buf:        bufio.NewWriterSize(w, 64*1024),
		path:       "table",
		terminator: terminator,
	}
}

// WriteRecord writes one complete record.
func (t *TableWriter) WriteRecord(fields ...string) error {
	if err := t.WriteString(strings.Join(fields, FieldSeparator)); err != nil {
		return err
	}
	return t.EndRecord()
}

// WriteString appends s to the current record.
func (t *TableWriter) WriteString(s string) error {
	n, err := t.buf.WriteString(s)
	t.offset += int64(n)
	if err != nil {
		return apperrors.Storage("writing", t.path, err)
	}
	return nil
}

// EndRecord terminates the current record.
func (t *TableWriter) EndRecord() error {
	return t.WriteString(t.terminator)
}

// Offset is the number of bytes written so far.
func (t *TableWriter) Offset() int64 {
	return t.offset
}

func (t *TableWriter) Path() string {
	return t.path
}

func (t *TableWriter) Close() error {
	if err := t.buf.Flush(); err != nil {
		if t.file != nil {
			t.file.Close()
		}
		return apperrors.Storage("flushing", t.path, err)
	}
	if t.file == nil {
		return nil
	}
	if err := t.file.Close(); err != nil {
		return apperrors.Storage("closing", t.path, err)
	}
	return nil
}

// ReadRecords calls fn for every non-empty record of r with the line
// terminator removed. Records may be arbitrarily long. Errors returned by fn
// are passed through unchanged.
func ReadRecords(r io.Reader, fn func(line string) error) error {
	return readRecords(r, "stream", fn)
}

// ReadRecordsFile is ReadRecords over the file at path.
func ReadRecordsFile(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Storage("opening", path, err)
	}
	defer f.Close()
	if err := readRecords(f, path, fn); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func readRecords(r io.Reader, path string, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if line != "" {
				if ferr := fn(line); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperrors.Storage("reading", path, err)
		}
	}
}
