package ranker

import (
	"fmt"
	"math"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/stats"
	"gonum.org/v1/gonum/floats"
)

// scoreFunc scores one document given the frequency of each query term slot.
type scoreFunc func(docID int64, tf []float64) float64

func (r *Ranker) scorer(model Model, q Query, norms []float64) scoreFunc {
	switch model {
	case OkapiTF:
		return r.vectorScorer(q, norms, false)
	case TFIDF:
		return r.vectorScorer(q, norms, true)
	case BM25:
		return r.bm25Scorer(q)
	case Laplace:
		return r.laplaceScorer(q)
	default:
		return r.jelinekMercerScorer(q)
	}
}

// okapiWeight is tf / (tf + k + lw*length/avgLength).
func (r *Ranker) okapiWeight(tf, length, avgLength float64) float64 {
	if tf <= 0 {
		return 0
	}
	ratio := 0.0
	if avgLength > 0 {
		ratio = length / avgLength
	}
	return tf / (tf + r.params.OkapiK + r.params.OkapiLengthWeight*ratio)
}

// idf is log(N/df), zero for terms in no document.
func (r *Ranker) idf(df int64) float64 {
	n := r.corpus.DocumentCount()
	if df <= 0 || n == 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df))
}

// vectorScorer is the dot product of the document and query weight vectors
// over the query terms, divided by the magnitude of the full document vector
// and, when configured, of the query vector.
func (r *Ranker) vectorScorer(q Query, norms []float64, withIDF bool) scoreFunc {
	qv := make([]float64, len(q.Terms))
	idfs := make([]float64, len(q.Terms))
	for i, t := range q.Terms {
		qv[i] = r.okapiWeight(float64(t.QueryFrequency), float64(q.Length), q.AvgLength)
		idfs[i] = 1
		if withIDF {
			idfs[i] = r.idf(t.Entry.DocumentFrequency)
		}
	}
	qNorm := 1.0
	if r.params.NormalizeQueryVector {
		qNorm = floats.Norm(qv, 2)
	}
	avgDocLen := r.corpus.AvgDocLength()
	dv := make([]float64, len(q.Terms))
	return func(docID int64, tf []float64) float64 {
		dl := float64(r.corpus.DocLength(docID))
		for i := range dv {
			dv[i] = r.okapiWeight(tf[i], dl, avgDocLen) * idfs[i]
		}
		norm := norms[docID-1] * qNorm
		if norm == 0 {
			return 0
		}
		return floats.Dot(dv, qv) / norm
	}
}

func (r *Ranker) bm25Scorer(q Query) scoreFunc {
	n := float64(r.corpus.DocumentCount())
	avgDocLen := r.corpus.AvgDocLength()
	k1, b, k3 := r.params.K1, r.params.B, r.params.K3

	weights := make([]float64, len(q.Terms))
	for i, t := range q.Terms {
		df := float64(t.Entry.DocumentFrequency)
		idf := math.Log((n - df + 0.5) / (df + 0.5))
		tfq := float64(t.QueryFrequency)
		weights[i] = idf * (k3 + 1) * tfq / (k3 + tfq)
	}
	return func(docID int64, tf []float64) float64 {
		ratio := 0.0
		if avgDocLen > 0 {
			ratio = float64(r.corpus.DocLength(docID)) / avgDocLen
		}
		norm := k1 * (1 - b + b*ratio)
		var score float64
		for i, f := range tf {
			if f == 0 {
				continue
			}
			score += weights[i] * f * (k1 + 1) / (f + norm)
		}
		return score
	}
}

// laplaceScorer sums tfq*log((tf+1)/(dl+V)) over the query terms.
func (r *Ranker) laplaceScorer(q Query) scoreFunc {
	v := float64(r.corpus.VocabularySize())
	return func(docID int64, tf []float64) float64 {
		denom := float64(r.corpus.DocLength(docID)) + v
		var score float64
		for i, t := range q.Terms {
			score += float64(t.QueryFrequency) * math.Log((tf[i]+1)/denom)
		}
		return score
	}
}

// jelinekMercerScorer interpolates the document model with the corpus model
// using the query's smoothing weight. The weight counts a term's corpus
// frequency once per occurrence in the query. Terms whose probability is not
// positive are left out of the sum.
func (r *Ranker) jelinekMercerScorer(q Query) scoreFunc {
	cfs := make([]int64, len(q.Terms))
	occurrences := make([]int64, len(q.Terms))
	for i, t := range q.Terms {
		cfs[i] = t.Entry.CorpusFrequency
		occurrences[i] = t.Entry.CorpusFrequency * int64(t.QueryFrequency)
	}
	lambda := r.corpus.SmoothingWeight(occurrences...)
	total := float64(r.corpus.TotalTerms())
	background := make([]float64, len(q.Terms))
	for i, cf := range cfs {
		if total > 0 {
			background[i] = (1 - lambda) * float64(cf) / total
		}
	}
	return func(docID int64, tf []float64) float64 {
		dl := float64(r.corpus.DocLength(docID))
		var score float64
		for i, t := range q.Terms {
			p := background[i]
			if dl > 0 {
				p += lambda * tf[i] / dl
			}
			if p <= 0 {
				continue
			}
			score += float64(t.QueryFrequency) * math.Log(p)
		}
		return score
	}
}

type normTable struct {
	once   sync.Once
	values []float64
	err    error
}

// Norms returns the magnitude of every document's full weight vector under a
// vector model, indexed by document id - 1. They are computed once per model
// with a pass over the forward index.
func (r *Ranker) Norms(model Model) ([]float64, error) {
	if !model.vector() {
		return nil, fmt.Errorf("model %s has no document vectors", model)
	}
	r.mu.Lock()
	table, ok := r.norms[model]
	if !ok {
		table = &normTable{}
		r.norms[model] = table
	}
	r.mu.Unlock()

	table.once.Do(func() {
		table.values, table.err = r.computeNorms(model)
	})
	return table.values, table.err
}

func (r *Ranker) computeNorms(model Model) ([]float64, error) {
	norms := make([]float64, r.corpus.DocumentCount())
	avgDocLen := r.corpus.AvgDocLength()
	var weights []float64
	err := r.corpus.ForEachDocument(func(docID int64, vector []stats.TermFrequency) error {
		if docID < 1 || docID > int64(len(norms)) {
			return fmt.Errorf("document %d outside corpus of %d", docID, len(norms))
		}
		dl := float64(r.corpus.DocLength(docID))
		weights = weights[:0]
		for _, tf := range vector {
			w := r.okapiWeight(float64(tf.Frequency), dl, avgDocLen)
			if model == TFIDF {
				entry, _ := r.idx.Directory.Lookup(tf.TermID)
				w *= r.idf(entry.DocumentFrequency)
			}
			weights = append(weights, w)
		}
		norms[docID-1] = floats.Norm(weights, 2)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("computing %s document norms: %w", model, err)
	}
	r.logger.Debug("document norms computed", "model", model.String(), "documents", len(norms))
	return norms, nil
}
