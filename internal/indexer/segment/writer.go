package segment

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Summary counts what one inverted build wrote.
type Summary struct {
	Terms         int64
	Records       int64
	PostingsBytes int64
}

// Writer turns a forward index sorted by (termId, docId) into delta-encoded
// postings and the term directory.
//
// A postings record is one line:
//
//	termId \t docDelta:firstPos \t 0:posDelta ... \t docDelta:firstPos ...
//
// A non-zero docDelta opens the next document; a zero docDelta continues the
// current one. The directory offset of a term points at the first byte of its
// termId.
type Writer struct {
	logger *slog.Logger
}

func NewWriter() *Writer {
	return &Writer{logger: slog.Default().With("component", "inverted-writer")}
}

// WriteFiles reads layout.SortedForward() and writes layout.Postings() and
// layout.Directory(). Partial files are left in place on failure.
func (w *Writer) WriteFiles(layout index.Layout, terminator string) (Summary, error) {
	in, err := os.Open(layout.SortedForward())
	if err != nil {
		return Summary{}, apperrors.Storage("opening", layout.SortedForward(), err)
	}
	defer in.Close()

	postings, err := index.CreateTable(layout.Postings(), terminator)
	if err != nil {
		return Summary{}, err
	}
	directory, err := index.CreateTable(layout.Directory(), terminator)
	if err != nil {
		postings.Close()
		return Summary{}, err
	}
	summary, err := w.Write(in, postings, directory)
	if cerr := postings.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := directory.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return summary, err
}

// postingsState tracks the term whose record is currently open.
type postingsState struct {
	termID    int64
	offset    int64
	docs      int64
	positions int64
	prevDoc   int64
}

func (s postingsState) entry() index.DirectoryEntry {
	return index.DirectoryEntry{
		TermID:            s.termID,
		Offset:            s.offset,
		CorpusFrequency:   s.positions,
		DocumentFrequency: s.docs,
	}
}

// Write consumes sorted forward records from r.
func (w *Writer) Write(r io.Reader, postings *index.TableWriter, directory *index.TableWriter) (Summary, error) {
	var summary Summary
	var cur postingsState
	start := postings.Offset()

	closeTerm := func() error {
		if err := postings.EndRecord(); err != nil {
			return err
		}
		if err := directory.WriteRecord(cur.entry().Fields()...); err != nil {
			return err
		}
		summary.Terms++
		return nil
	}

	err := index.ReadRecords(r, func(line string) error {
		fp, err := index.ParseForward(line)
		if err != nil {
			return err
		}
		if fp.TermID != cur.termID {
			if fp.TermID < cur.termID {
				return apperrors.Newf(apperrors.ErrMalformedRecord, "term %d follows term %d in sorted input", fp.TermID, cur.termID)
			}
			if cur.termID != 0 {
				if err := closeTerm(); err != nil {
					return err
				}
			} else if fp.TermID != 1 {
				w.logger.Warn("sorted input does not start at term 1", "first_term", fp.TermID)
			}
			if cur.termID+1 != fp.TermID && cur.termID != 0 {
				w.logger.Warn("term ids are not dense", "after", cur.termID, "next", fp.TermID)
			}
			cur = postingsState{termID: fp.TermID, offset: postings.Offset()}
			if err := postings.WriteString(strconv.FormatInt(fp.TermID, 10)); err != nil {
				return err
			}
		} else if fp.DocID <= cur.prevDoc {
			return apperrors.Newf(apperrors.ErrMalformedRecord, "document %d follows document %d for term %d", fp.DocID, cur.prevDoc, fp.TermID)
		}

		if err := writeDocumentEntry(postings, fp.DocID-cur.prevDoc, fp.Positions); err != nil {
			return err
		}
		cur.docs++
		cur.positions += int64(len(fp.Positions))
		cur.prevDoc = fp.DocID
		summary.Records++
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("building inverted index: %w", err)
	}
	if cur.termID != 0 {
		if err := closeTerm(); err != nil {
			return summary, fmt.Errorf("building inverted index: %w", err)
		}
	}
	summary.PostingsBytes = postings.Offset() - start
	w.logger.Info("inverted index written",
		"terms", summary.Terms,
		"records", summary.Records,
		"postings_bytes", summary.PostingsBytes,
	)
	return summary, nil
}

// writeDocumentEntry appends the entries of one document: the doc delta with
// the literal first position, then 0:gap for every further position.
func writeDocumentEntry(postings *index.TableWriter, docDelta int64, positions []int) error {
	buf := make([]byte, 0, 16*len(positions))
	prev := 0
	for i, pos := range positions {
		delta := docDelta
		value := pos
		if i > 0 {
			delta = 0
			value = pos - prev
			if value <= 0 {
				return apperrors.Newf(apperrors.ErrMalformedRecord, "positions not ascending: %d after %d", pos, prev)
			}
		}
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, delta, 10)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(value), 10)
		prev = pos
	}
	return postings.WriteString(string(buf))
}
