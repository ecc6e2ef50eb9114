// Package postgres holds the lib/pq pool that ranking runs are persisted to:
// schema setup, transactions and COPY-based bulk loads.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/lib/pq"
)

type Client struct {
	DB *sql.DB
}

// New opens the pool described by cfg and fails unless the server answers
// within five seconds.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{DB: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// FromDB wraps a pool opened elsewhere, e.g. by a test.
func FromDB(db *sql.DB) *Client {
	return &Client{DB: db}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Migrate runs statements in order inside one transaction.
func (c *Client) Migrate(ctx context.Context, statements ...string) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CopyIn bulk-loads rows into table with COPY FROM STDIN in one transaction.
// Every row must hold one value per column.
func (c *Client) CopyIn(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return c.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", table, err)
		}
		for i, row := range rows {
			if len(row) != len(columns) {
				stmt.Close()
				return fmt.Errorf("copy into %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return fmt.Errorf("copy into %s: %w", table, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy into %s: %w", table, err)
		}
		return stmt.Close()
	})
}
