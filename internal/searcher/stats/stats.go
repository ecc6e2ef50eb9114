// Package stats derives the corpus and query-batch aggregates the ranking
// models share.
package stats

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// TermFrequency is one term of a document vector.
type TermFrequency struct {
	TermID    int64
	Frequency int
}

// Corpus holds corpus-wide aggregates. Document lengths are held densely,
// entry id-1 belongs to document id. A document is counted even when it was
// skipped at build time; its length is zero.
type Corpus struct {
	forwardPath string
	documents   int64
	totalTerms  int64
	vocabulary  int
	lengths     []int64
}

// Collect scans the forward index of idx once to measure every document.
func Collect(idx *segment.Index) (*Corpus, error) {
	c := &Corpus{
		forwardPath: idx.Layout.Forward(),
		documents:   int64(idx.Documents.Len()),
		vocabulary:  idx.Terms.Len(),
		lengths:     make([]int64, idx.Documents.Len()),
	}
	err := index.ReadRecordsFile(c.forwardPath, func(line string) error {
		docID, _, count, err := index.CountForwardPositions(line)
		if err != nil {
			return err
		}
		if docID < 1 || docID > c.documents {
			return apperrors.Newf(apperrors.ErrMalformedRecord, "forward record for unknown document %d", docID)
		}
		c.lengths[docID-1] += int64(count)
		c.totalTerms += int64(count)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting corpus statistics: %w", err)
	}
	if dirTotal := idx.Directory.TotalOccurrences(); dirTotal != c.totalTerms {
		slog.Default().With("component", "stats").Warn("forward index and term directory disagree on corpus size",
			"forward", c.totalTerms,
			"directory", dirTotal,
		)
	}
	return c, nil
}

// NewCorpus builds a Corpus from known lengths, for callers that measured
// documents themselves.
func NewCorpus(lengths []int64, vocabulary int) *Corpus {
	c := &Corpus{
		documents:  int64(len(lengths)),
		vocabulary: vocabulary,
		lengths:    lengths,
	}
	for _, l := range lengths {
		c.totalTerms += l
	}
	return c
}

// DocumentCount is N, the number of assigned document ids.
func (c *Corpus) DocumentCount() int64 { return c.documents }

// TotalTerms is the number of indexed term occurrences in the corpus.
func (c *Corpus) TotalTerms() int64 { return c.totalTerms }

func (c *Corpus) VocabularySize() int { return c.vocabulary }

func (c *Corpus) AvgDocLength() float64 {
	if c.documents == 0 {
		return 0
	}
	return float64(c.totalTerms) / float64(c.documents)
}

// DocLength returns 0 for ids outside the corpus.
func (c *Corpus) DocLength(docID int64) int64 {
	if docID < 1 || docID > int64(len(c.lengths)) {
		return 0
	}
	return c.lengths[docID-1]
}

// SmoothingWeight is the query-adaptive Jelinek-Mercer weight: the summed
// corpus frequencies of the query's terms over the corpus size.
func (c *Corpus) SmoothingWeight(corpusFrequencies ...int64) float64 {
	if c.totalTerms == 0 {
		return 0
	}
	var sum int64
	for _, cf := range corpusFrequencies {
		sum += cf
	}
	return float64(sum) / float64(c.totalTerms)
}

// ForEachDocument streams every document vector of the forward index in
// document order. Records of one document are contiguous in the forward
// index, so only one vector is held at a time.
func (c *Corpus) ForEachDocument(fn func(docID int64, vector []TermFrequency) error) error {
	if c.forwardPath == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "corpus was not collected from an index")
	}
	var (
		current int64
		vector  []TermFrequency
	)
	err := index.ReadRecordsFile(c.forwardPath, func(line string) error {
		docID, termID, count, err := index.CountForwardPositions(line)
		if err != nil {
			return err
		}
		if docID != current && len(vector) > 0 {
			if err := fn(current, vector); err != nil {
				return err
			}
			vector = vector[:0]
		}
		current = docID
		vector = append(vector, TermFrequency{TermID: termID, Frequency: count})
		return nil
	})
	if err != nil {
		return err
	}
	if len(vector) > 0 {
		return fn(current, vector)
	}
	return nil
}

// QueryBatch holds the query-length aggregates of one batch.
type QueryBatch struct {
	Queries    int
	TotalTerms int
	lengths    map[string]int
}

// CollectQueries measures each query as its count of normalised non-stop
// terms, repeats included.
func CollectQueries(plans []parser.QueryPlan) QueryBatch {
	b := QueryBatch{Queries: len(plans), lengths: make(map[string]int, len(plans))}
	for _, p := range plans {
		b.TotalTerms += len(p.Terms)
		b.lengths[p.Query.ID] = len(p.Terms)
	}
	return b
}

func (b QueryBatch) AvgLength() float64 {
	if b.Queries == 0 {
		return 0
	}
	return float64(b.TotalTerms) / float64(b.Queries)
}

// Length returns the measured length of query id.
func (b QueryBatch) Length(id string) (int, bool) {
	l, ok := b.lengths[id]
	return l, ok
}

// Report is the pre-processing summary printed before a ranking run.
type Report struct {
	QueryTerms     int     `json:"query_terms"`
	Queries        int     `json:"queries"`
	AvgQueryLength float64 `json:"avg_query_length"`
	Vocabulary     int     `json:"vocabulary"`
	CorpusTerms    int64   `json:"corpus_terms"`
	Documents      int64   `json:"documents"`
	AvgDocLength   float64 `json:"avg_doc_length"`
}

func NewReport(c *Corpus, b QueryBatch) Report {
	return Report{
		QueryTerms:     b.TotalTerms,
		Queries:        b.Queries,
		AvgQueryLength: b.AvgLength(),
		Vocabulary:     c.VocabularySize(),
		CorpusTerms:    c.TotalTerms(),
		Documents:      c.DocumentCount(),
		AvgDocLength:   c.AvgDocLength(),
	}
}

func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"Total terms in queries: %d\n"+
			"Query count: %d\n"+
			"Average query length: %g\n"+
			"\n"+
			"Vocabulary size: %d\n"+
			"Total terms in corpus: %d\n"+
			"Document count: %d\n"+
			"Average document length: %g\n",
		r.QueryTerms, r.Queries, r.AvgQueryLength,
		r.Vocabulary, r.CorpusTerms, r.Documents, r.AvgDocLength,
	)
	return int64(n), err
}

// LogValue lets a Report be logged as a group.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("query_terms", r.QueryTerms),
		slog.Int("queries", r.Queries),
		slog.Float64("avg_query_length", r.AvgQueryLength),
		slog.Int("vocabulary", r.Vocabulary),
		slog.Int64("corpus_terms", r.CorpusTerms),
		slog.Int64("documents", r.Documents),
		slog.Float64("avg_doc_length", r.AvgDocLength),
	)
}
