package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/manthysbr/vita/internal/core/ports"
)

// Repository is the DuckDB-backed store for runs, traces, settings and the
// knowledge base.
type Repository struct {
	db *sql.DB
}

// Ensure Repository implements Repository interface
var _ ports.Repository = (*Repository)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		trace_id    TEXT,
		prompt      TEXT NOT NULL,
		response    TEXT,
		status      TEXT NOT NULL,
		iterations  INTEGER NOT NULL,
		step_count  INTEGER NOT NULL,
		steps       TEXT,
		error       TEXT,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS traces (
		id           TEXT PRIMARY KEY,
		run_id       TEXT,
		name         TEXT NOT NULL,
		status       TEXT NOT NULL,
		root_span_id TEXT NOT NULL,
		start_time   TIMESTAMP NOT NULL,
		end_time     TIMESTAMP,
		duration_ms  BIGINT,
		span_count   INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS spans (
		id          TEXT PRIMARY KEY,
		trace_id    TEXT NOT NULL,
		parent_id   TEXT,
		name        TEXT NOT NULL,
		kind        TEXT NOT NULL,
		status      TEXT NOT NULL,
		input       TEXT,
		output      TEXT,
		error       TEXT,
		attributes  TEXT,
		start_time  TIMESTAMP NOT NULL,
		end_time    TIMESTAMP,
		duration_ms BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS knowledge_docs (
		id         TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		source     TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_spans_trace ON spans(trace_id)`,
	`CREATE INDEX IF NOT EXISTS idx_docs_collection ON knowledge_docs(collection)`,
}

// NewRepository opens (or creates) the database at path and applies the schema.
// An empty path opens an in-memory database.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
