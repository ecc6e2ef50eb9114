// Package extsort sorts line-oriented files larger than memory. Input is cut
// into chunks that are sorted concurrently and spilled as runs, then the runs
// are k-way merged. The sort is stable: equal lines keep their input order.
package extsort

import (
	"bufio"
	"container/heap"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Compare orders two records. It returns a negative number when a sorts
// before b, zero when they are equal, and a positive number otherwise.
type Compare func(a, b string) int

// Stats describes one sort.
type Stats struct {
	Records int64
	Runs    int
}

// Sorter is an external merge sort over line records.
type Sorter struct {
	compare      Compare
	validate     func(line string) error
	chunkRecords int
	parallelism  int
	tempDir      string
	terminator   string
	logger       *slog.Logger
}

// New creates a Sorter. validate may be nil; when set it runs on every input
// record before the record is buffered, so compare only ever sees valid
// records.
func New(cfg config.SortConfig, terminator string, compare Compare, validate func(line string) error) *Sorter {
	chunk := cfg.ChunkRecords
	if chunk <= 0 {
		chunk = 100000
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if terminator == "" {
		terminator = "\n"
	}
	return &Sorter{
		compare:      compare,
		validate:     validate,
		chunkRecords: chunk,
		parallelism:  parallelism,
		tempDir:      cfg.TempDir,
		terminator:   terminator,
		logger:       slog.Default().With("component", "extsort"),
	}
}

// SortFile sorts the records of inPath into outPath.
func (s *Sorter) SortFile(ctx context.Context, inPath string, outPath string) (Stats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Stats{}, apperrors.Storage("opening", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, apperrors.Storage("creating", outPath, err)
	}
	stats, err := s.Sort(ctx, in, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = apperrors.Storage("closing", outPath, cerr)
	}
	return stats, err
}

// Sort reads records from r and writes them to w in order.
func (s *Sorter) Sort(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	runDir, err := os.MkdirTemp(s.tempDir, "extsort-*")
	if err != nil {
		return Stats{}, apperrors.Storage("creating", "sort run directory", err)
	}
	defer os.RemoveAll(runDir)

	runs, records, err := s.spillRuns(ctx, r, runDir)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Records: records, Runs: len(runs)}
	s.logger.Debug("sorted runs spilled", "runs", len(runs), "records", records)

	if err := s.merge(ctx, runs, w); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Sorter) spillRuns(ctx context.Context, r io.Reader, runDir string) ([]string, int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	var runs []string
	var records int64
	chunk := make([]string, 0, s.chunkRecords)
	flush := func() {
		path := filepath.Join(runDir, fmt.Sprintf("run-%06d", len(runs)))
		runs = append(runs, path)
		lines := chunk
		chunk = make([]string, 0, s.chunkRecords)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slices.SortStableFunc(lines, s.compare)
			return writeRun(path, lines)
		})
	}

	br := bufio.NewReaderSize(r, 64*1024)
	var readErr error
	for readErr == nil {
		var line string
		line, readErr = br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if s.validate != nil {
			if err := s.validate(line); err != nil {
				_ = g.Wait()
				return nil, 0, fmt.Errorf("sort input record %d: %w", records+1, err)
			}
		}
		chunk = append(chunk, line)
		records++
		if len(chunk) == s.chunkRecords {
			flush()
			if gctx.Err() != nil {
				break
			}
		}
	}
	if readErr != nil && readErr != io.EOF {
		_ = g.Wait()
		return nil, 0, apperrors.Storage("reading", "sort input", readErr)
	}
	if len(chunk) > 0 {
		flush()
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return runs, records, nil
}

func writeRun(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Storage("creating", path, err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			f.Close()
			return apperrors.Storage("writing", path, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			f.Close()
			return apperrors.Storage("writing", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return apperrors.Storage("flushing", path, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Storage("closing", path, err)
	}
	return nil
}

// runCursor is the head record of one run during the merge.
type runCursor struct {
	line   string
	run    int
	reader *bufio.Reader
}

type mergeHeap struct {
	cursors []*runCursor
	compare Compare
}

func (h *mergeHeap) Len() int { return len(h.cursors) }

// Less breaks ties by run index; runs hold consecutive input chunks, so this
// keeps the merge stable.
func (h *mergeHeap) Less(i, j int) bool {
	if c := h.compare(h.cursors[i].line, h.cursors[j].line); c != 0 {
		return c < 0
	}
	return h.cursors[i].run < h.cursors[j].run
}

func (h *mergeHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *mergeHeap) Push(x interface{}) {
	h.cursors = append(h.cursors, x.(*runCursor))
}

func (h *mergeHeap) Pop() interface{} {
	old := h.cursors
	n := len(old)
	item := old[n-1]
	h.cursors = old[:n-1]
	return item
}

func (s *Sorter) merge(ctx context.Context, runs []string, w io.Writer) error {
	h := &mergeHeap{compare: s.compare}
	for i, path := range runs {
		f, err := os.Open(path)
		if err != nil {
			return apperrors.Storage("opening", path, err)
		}
		defer f.Close()
		cur := &runCursor{run: i, reader: bufio.NewReaderSize(f, 32*1024)}
		ok, err := cur.advance()
		if err != nil {
			return apperrors.Storage("reading", path, err)
		}
		if ok {
			h.cursors = append(h.cursors, cur)
		}
	}
	heap.Init(h)

	bw := bufio.NewWriterSize(w, 64*1024)
	var written int64
	for h.Len() > 0 {
		if written%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cur := h.cursors[0]
		if _, err := bw.WriteString(cur.line); err != nil {
			return apperrors.Storage("writing", "sorted output", err)
		}
		if _, err := bw.WriteString(s.terminator); err != nil {
			return apperrors.Storage("writing", "sorted output", err)
		}
		written++
		ok, err := cur.advance()
		if err != nil {
			return apperrors.Storage("reading", runs[cur.run], err)
		}
		if ok {
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.Storage("flushing", "sorted output", err)
	}
	return nil
}

func (c *runCursor) advance() (bool, error) {
	for {
		line, err := c.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			c.line = line
			return true, nil
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
