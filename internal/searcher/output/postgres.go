package output

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/postgres"
)

const createResultsTable = `CREATE TABLE IF NOT EXISTS ranking_results (
	run_id     UUID             NOT NULL,
	query_id   TEXT             NOT NULL,
	model      TEXT             NOT NULL,
	rank       INTEGER          NOT NULL,
	doc_ref    TEXT             NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	run_tag    TEXT             NOT NULL,
	created_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, query_id, rank)
)`

const createResultsIndex = `CREATE INDEX IF NOT EXISTS ranking_results_query_idx
	ON ranking_results (query_id, model)`

const resultsTable = "ranking_results"

var resultColumns = []string{"run_id", "query_id", "model", "rank", "doc_ref", "score", "run_tag"}

// resultRow is one ranking_results row.
type resultRow struct {
	RunID   string
	QueryID string
	Model   string
	Rank    int
	DocRef  string
	Score   float64
	RunTag  string
}

func (r resultRow) values() []any {
	return []any{r.RunID, r.QueryID, r.Model, r.Rank, r.DocRef, r.Score, r.RunTag}
}

func resultRows(runID string, run Run) []resultRow {
	rows := make([]resultRow, len(run.Results))
	for i, doc := range run.Results {
		rows[i] = resultRow{
			RunID:   runID,
			QueryID: run.QueryID,
			Model:   run.Model.String(),
			Rank:    i + 1,
			DocRef:  doc.Reference,
			Score:   doc.Score,
			RunTag:  run.RunTag,
		}
	}
	return rows
}

// PostgresSink stores each query's ranked list in one transaction. All rows
// of a ranking run share runID.
type PostgresSink struct {
	db     *postgres.Client
	runID  string
	logger *slog.Logger
}

func NewPostgresSink(db *postgres.Client, runID string) *PostgresSink {
	return &PostgresSink{
		db:     db,
		runID:  runID,
		logger: slog.Default().With("component", "results-store"),
	}
}

// EnsureSchema creates ranking_results and its index if they do not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, createResultsTable, createResultsIndex); err != nil {
		return fmt.Errorf("creating %s: %w", resultsTable, err)
	}
	return nil
}

func (s *PostgresSink) WriteRun(ctx context.Context, run Run) error {
	rows := resultRows(s.runID, run)
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.values()
	}
	if err := s.db.CopyIn(ctx, resultsTable, resultColumns, values); err != nil {
		return fmt.Errorf("storing results of query %s: %w", run.QueryID, err)
	}
	s.logger.Debug("results stored", "run_id", s.runID, "query_id", run.QueryID, "rows", len(rows))
	return nil
}

// Close leaves the pool open; it belongs to the caller.
func (s *PostgresSink) Close() error {
	return nil
}
