// Package output writes ranked lists as TREC run lines and, optionally,
// rows of the ranking_results table.
package output

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Run is the ranked list of one query.
type Run struct {
	QueryID string
	Model   ranker.Model
	RunTag  string
	Results []ranker.ScoredDoc
}

// Sink receives runs in query order.
type Sink interface {
	WriteRun(ctx context.Context, run Run) error
	Close() error
}

// FormatLine renders "queryId \t 0 \t reference \t rank \t score \t runTag".
func FormatLine(queryID string, rank int, doc ranker.ScoredDoc, runTag string) string {
	return strings.Join([]string{
		queryID,
		"0",
		doc.Reference,
		strconv.Itoa(rank),
		strconv.FormatFloat(doc.Score, 'g', -1, 64),
		runTag,
	}, "\t")
}

// TRECWriter writes runs as TREC lines, ranks starting at 1.
type TRECWriter struct {
	w      *bufio.Writer
	closer io.Closer
	path   string
}

func CreateTREC(path string) (*TRECWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apperrors.Storage("creating", path, err)
	}
	return &TRECWriter{w: bufio.NewWriter(f), closer: f, path: path}, nil
}

func NewTRECWriter(w io.Writer) *TRECWriter {
	return &TRECWriter{w: bufio.NewWriter(w)}
}

func (t *TRECWriter) WriteRun(_ context.Context, run Run) error {
	for i, doc := range run.Results {
		if _, err := t.w.WriteString(FormatLine(run.QueryID, i+1, doc, run.RunTag) + "\n"); err != nil {
			return apperrors.Storage("writing", t.path, err)
		}
	}
	return nil
}

func (t *TRECWriter) Close() error {
	if err := t.w.Flush(); err != nil {
		return apperrors.Storage("flushing", t.path, err)
	}
	if t.closer != nil {
		if err := t.closer.Close(); err != nil {
			return apperrors.Storage("closing", t.path, err)
		}
	}
	return nil
}

// MultiSink fans every run out to all of its sinks.
type MultiSink []Sink

func (m MultiSink) WriteRun(ctx context.Context, run Run) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
