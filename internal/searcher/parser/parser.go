// Package parser reads query batches and turns query text into the
// normalised term sequence the ranker scores.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Query is one (id, text) pair of a batch.
type Query struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QueryPlan is a query after normalisation. Terms keeps repeats and query
// order, so its length is the query length used by the ranking models.
type QueryPlan struct {
	Query Query
	Terms []string
}

type topics struct {
	Topics []topic `xml:"topic"`
}

type topic struct {
	Number string `xml:"number,attr"`
	Query  string `xml:"query"`
}

// Load reads a query batch. Files ending in .xml are read as topics, anything
// else as tab-separated "id \t text" lines.
func Load(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Storage("opening", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return ParseTopics(f)
	}
	return ParseTSV(f)
}

// ParseTopics reads <topic number="N"><query>text</query></topic> elements in
// document order. A topic without a number is rejected.
func ParseTopics(r io.Reader) ([]Query, error) {
	var doc topics
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "decoding topics: %v", err)
	}
	queries := make([]Query, 0, len(doc.Topics))
	for i, t := range doc.Topics {
		id := strings.TrimSpace(t.Number)
		if id == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "topic %d has no number", i+1)
		}
		queries = append(queries, Query{ID: id, Text: strings.TrimSpace(t.Query)})
	}
	return queries, nil
}

// ParseTSV reads "id \t text" records. Lines without a tab are rejected.
func ParseTSV(r io.Reader) ([]Query, error) {
	var queries []Query
	line := 0
	err := index.ReadRecords(r, func(record string) error {
		line++
		id, text, ok := strings.Cut(record, index.FieldSeparator)
		if !ok || strings.TrimSpace(id) == "" {
			return apperrors.Newf(apperrors.ErrInvalidInput, "query line %d: want \"id\\ttext\"", line)
		}
		queries = append(queries, Query{ID: strings.TrimSpace(id), Text: strings.TrimSpace(text)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// Parse normalises q with the same normaliser used at build time.
func Parse(q Query, n *tokenizer.Normalizer) QueryPlan {
	return QueryPlan{Query: q, Terms: n.Terms(q.Text)}
}

// ParseAll normalises a batch, keeping its order.
func ParseAll(queries []Query, n *tokenizer.Normalizer) []QueryPlan {
	plans := make([]QueryPlan, len(queries))
	for i, q := range queries {
		plans[i] = Parse(q, n)
	}
	return plans
}
