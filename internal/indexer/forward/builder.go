// Package forward builds the forward index: it assigns document and term ids
// and emits one record per (document, term) pair carrying every position of
// the term in the document.
package forward

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
)

// BuildContext owns the id counters and name tables of one build. Ids are
// minted under a single lock so documents could be tokenised in parallel
// without breaking dense assignment.
type BuildContext struct {
	mu    sync.Mutex
	docs  *index.DocumentTable
	terms *index.TermTable
}

func NewBuildContext() *BuildContext {
	return &BuildContext{
		docs:  index.NewDocumentTable(),
		terms: index.NewTermTable(),
	}
}

// NextDocument mints the next document id for ref.
func (c *BuildContext) NextDocument(ref string) index.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docs.Append(ref)
}

// InternTerm returns the term for surface and whether its id was just minted.
func (c *BuildContext) InternTerm(surface string) (index.Term, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, minted := c.terms.Intern(surface)
	return index.Term{ID: id, Surface: surface}, minted
}

func (c *BuildContext) Documents() *index.DocumentTable { return c.docs }

func (c *BuildContext) Terms() *index.TermTable { return c.terms }

// Writers receive the three append-only tables of the forward phase.
type Writers struct {
	Documents *index.TableWriter
	Terms     *index.TableWriter
	Forward   *index.TableWriter
}

// DocumentSource is the subset of a corpus source the builder needs.
type DocumentSource interface {
	References() []string
	Fetch(ctx context.Context, ref string) (string, error)
}

// Summary counts what one forward pass produced.
type Summary struct {
	Documents int64
	Skipped   int64
	Terms     int64
	Records   int64
	Tokens    int64
}

// Builder writes the forward index. It is not safe for concurrent use.
type Builder struct {
	bc         *BuildContext
	normalizer *tokenizer.Normalizer
	out        Writers
	logger     *slog.Logger
	summary    Summary
}

func NewBuilder(bc *BuildContext, normalizer *tokenizer.Normalizer, out Writers) *Builder {
	return &Builder{
		bc:         bc,
		normalizer: normalizer,
		out:        out,
		logger:     slog.Default().With("component", "forward-builder"),
	}
}

// Build processes every document of src in order. Unreadable documents keep
// their id and contribute no postings. Only write failures and cancellation
// stop the pass.
func (b *Builder) Build(ctx context.Context, src DocumentSource) (Summary, error) {
	for _, ref := range src.References() {
		text, err := src.Fetch(ctx, ref)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return b.summary, ctxErr
			}
			if _, err := b.SkipDocument(ref, err); err != nil {
				return b.summary, err
			}
			continue
		}
		if _, err := b.AddDocument(ref, text); err != nil {
			return b.summary, err
		}
	}
	return b.summary, nil
}

// AddDocument tokenises text under the next document id and writes one
// forward record per distinct term, in first-encounter order.
func (b *Builder) AddDocument(ref string, text string) (index.Document, error) {
	doc := b.bc.NextDocument(ref)
	if err := b.writeDocument(doc); err != nil {
		return doc, err
	}

	tokens := b.normalizer.Tokenize(text)
	order := make([]int64, 0, len(tokens)/2+1)
	positions := make(map[int64][]int, len(tokens)/2+1)
	for _, tok := range tokens {
		term, minted := b.bc.InternTerm(tok.Term)
		if minted {
			if err := b.out.Terms.WriteRecord(strconv.FormatInt(term.ID, 10), term.Surface); err != nil {
				return doc, fmt.Errorf("writing term %d: %w", term.ID, err)
			}
			b.summary.Terms++
		}
		if _, seen := positions[term.ID]; !seen {
			order = append(order, term.ID)
		}
		positions[term.ID] = append(positions[term.ID], tok.Position)
	}

	for _, termID := range order {
		record := index.ForwardPosting{DocID: doc.ID, TermID: termID, Positions: positions[termID]}
		if err := b.out.Forward.WriteRecord(record.Fields()...); err != nil {
			return doc, fmt.Errorf("writing forward record for document %d: %w", doc.ID, err)
		}
		b.summary.Records++
	}
	b.summary.Tokens += int64(len(tokens))
	b.logger.Debug("document indexed",
		"doc_id", doc.ID,
		"reference", ref,
		"tokens", len(tokens),
		"distinct_terms", len(order),
	)
	return doc, nil
}

// SkipDocument records ref under the next id without postings.
func (b *Builder) SkipDocument(ref string, cause error) (index.Document, error) {
	doc := b.bc.NextDocument(ref)
	b.logger.Warn("document skipped",
		"doc_id", doc.ID,
		"reference", ref,
		"error", cause,
	)
	b.summary.Skipped++
	return doc, b.writeDocument(doc)
}

func (b *Builder) writeDocument(doc index.Document) error {
	if err := b.out.Documents.WriteRecord(strconv.FormatInt(doc.ID, 10), doc.Reference); err != nil {
		return fmt.Errorf("writing document %d: %w", doc.ID, err)
	}
	b.summary.Documents++
	return nil
}
