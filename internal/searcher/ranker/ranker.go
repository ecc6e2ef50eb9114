// Package ranker scores documents of a built index against normalised
// queries with one of five retrieval models and orders the results.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/stats"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

type ScoredDoc struct {
	DocID     int64   `json:"doc_id"`
	Reference string  `json:"reference"`
	Score     float64 `json:"score"`
}

// Ranking is an ordered result list. Matched counts every scored document,
// including ones cut from Results.
type Ranking struct {
	Results []ScoredDoc `json:"results"`
	Matched int         `json:"matched"`
}

// QueryTerm is one distinct query term found in the vocabulary.
type QueryTerm struct {
	Surface        string
	Entry          index.DirectoryEntry
	QueryFrequency int
}

// Query is a query resolved against the index. Length counts every
// normalised term, including ones missing from the vocabulary.
type Query struct {
	ID        string
	Length    int
	AvgLength float64
	Terms     []QueryTerm
	Missing   []string
}

// RelevantDocuments is every document containing at least one query term,
// kept in the order documents were first met while decoding postings.
type RelevantDocuments struct {
	order []int64
	freqs map[int64][]int
}

func newRelevantDocuments() *RelevantDocuments {
	return &RelevantDocuments{freqs: make(map[int64][]int)}
}

func (r *RelevantDocuments) add(docID int64, slot int, slots int, tf int) {
	f, ok := r.freqs[docID]
	if !ok {
		f = make([]int, slots)
		r.freqs[docID] = f
		r.order = append(r.order, docID)
	}
	f[slot] = tf
}

func (r *RelevantDocuments) Contains(docID int64) bool {
	_, ok := r.freqs[docID]
	return ok
}

func (r *RelevantDocuments) Len() int {
	return len(r.order)
}

// Order returns document ids in first-encounter order.
func (r *RelevantDocuments) Order() []int64 {
	return r.order
}

// Frequency is the frequency in docID of the query term at slot, zero when
// absent.
func (r *RelevantDocuments) Frequency(docID int64, slot int) int {
	f, ok := r.freqs[docID]
	if !ok || slot < 0 || slot >= len(f) {
		return 0
	}
	return f[slot]
}

// Ranker scores queries against one opened index. It is safe for concurrent
// use; the index is read-only while ranking.
type Ranker struct {
	idx    *segment.Index
	corpus *stats.Corpus
	params Params
	logger *slog.Logger

	mu    sync.Mutex
	norms map[Model]*normTable
}

func New(idx *segment.Index, corpus *stats.Corpus, params Params) *Ranker {
	return &Ranker{
		idx:    idx,
		corpus: corpus,
		params: params,
		logger: slog.Default().With("component", "ranker"),
		norms:  make(map[Model]*normTable),
	}
}

// Params returns the constants r scores with.
func (r *Ranker) Params() Params {
	return r.params
}

// Resolve looks up each distinct term of plan in first-appearance order.
// Terms missing from the vocabulary are recorded and contribute nothing.
func (r *Ranker) Resolve(plan parser.QueryPlan, avgQueryLength float64) (Query, error) {
	q := Query{
		ID:        plan.Query.ID,
		Length:    len(plan.Terms),
		AvgLength: avgQueryLength,
	}
	slots := make(map[string]int, len(plan.Terms))
	missing := make(map[string]struct{})
	for _, surface := range plan.Terms {
		if slot, ok := slots[surface]; ok {
			q.Terms[slot].QueryFrequency++
			continue
		}
		if _, ok := missing[surface]; ok {
			continue
		}
		entry, err := r.idx.LookupTerm(surface)
		if err != nil {
			if apperrors.IsLookupMiss(err) {
				missing[surface] = struct{}{}
				q.Missing = append(q.Missing, surface)
				continue
			}
			return Query{}, fmt.Errorf("resolving term %q: %w", surface, err)
		}
		slots[surface] = len(q.Terms)
		q.Terms = append(q.Terms, QueryTerm{Surface: surface, Entry: entry, QueryFrequency: 1})
	}
	if len(q.Missing) > 0 {
		r.logger.Debug("query terms not present", "query_id", q.ID, "terms", q.Missing)
	}
	return q, nil
}

// Relevant decodes the postings of every resolved term.
func (r *Ranker) Relevant(ctx context.Context, q Query) (*RelevantDocuments, error) {
	rel := newRelevantDocuments()
	for slot, t := range q.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list, err := r.idx.Postings.ReadEntry(t.Entry, false)
		if err != nil {
			return nil, fmt.Errorf("reading postings of %q: %w", t.Surface, err)
		}
		for _, p := range list {
			rel.add(p.DocID, slot, len(q.Terms), p.Frequency)
		}
	}
	return rel, nil
}

// Rank scores every relevant document of plan under model and orders them by
// descending score. Equal scores keep first-encounter order.
func (r *Ranker) Rank(ctx context.Context, model Model, plan parser.QueryPlan, avgQueryLength float64) ([]ScoredDoc, error) {
	ranking, err := r.RankTop(ctx, model, plan, avgQueryLength, 0)
	if err != nil {
		return nil, err
	}
	return ranking.Results, nil
}

// RankTop is Rank keeping only the limit best documents; limit <= 0 keeps
// all of them.
func (r *Ranker) RankTop(ctx context.Context, model Model, plan parser.QueryPlan, avgQueryLength float64, limit int) (Ranking, error) {
	if _, ok := modelNames[model]; !ok {
		return Ranking{}, apperrors.Newf(apperrors.ErrUnknownModel, "model %d", int(model))
	}
	q, err := r.Resolve(plan, avgQueryLength)
	if err != nil {
		return Ranking{}, err
	}
	if len(q.Terms) == 0 {
		return Ranking{Results: []ScoredDoc{}}, nil
	}
	rel, err := r.Relevant(ctx, q)
	if err != nil {
		return Ranking{}, err
	}

	var norms []float64
	if model.vector() {
		if norms, err = r.Norms(model); err != nil {
			return Ranking{}, err
		}
	}
	score := r.scorer(model, q, norms)

	scored := make([]ScoredDoc, 0, rel.Len())
	tf := make([]float64, len(q.Terms))
	for _, docID := range rel.Order() {
		for slot := range q.Terms {
			tf[slot] = float64(rel.Frequency(docID, slot))
		}
		scored = append(scored, ScoredDoc{DocID: docID, Score: score(docID, tf)})
	}
	results := merger.TopK(scored, limit, func(a, b ScoredDoc) bool {
		return a.Score > b.Score
	})
	for i := range results {
		results[i].Reference, _ = r.idx.Documents.Reference(results[i].DocID)
	}
	return Ranking{Results: results, Matched: len(scored)}, nil
}
