package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manthysbr/vita/internal/core/domain"
)

// SaveRun upserts a run record with its step trail serialized as JSON.
func (r *Repository) SaveRun(ctx context.Context, run domain.RunRecord) error {
	steps := run.Steps
	if steps == nil {
		steps = []domain.StepRecord{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, trace_id, prompt, response, status, iterations, step_count, steps, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			response    = excluded.response,
			status      = excluded.status,
			iterations  = excluded.iterations,
			step_count  = excluded.step_count,
			steps       = excluded.steps,
			error       = excluded.error,
			finished_at = excluded.finished_at`,
		string(run.ID),
		string(run.TraceID),
		run.Prompt,
		run.Response,
		string(run.Status),
		run.Iterations,
		len(steps),
		string(stepsJSON),
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun returns the full run record including its steps.
func (r *Repository) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, trace_id, prompt, response, status, iterations, steps, error, started_at, finished_at
		FROM runs WHERE id = ?`, string(id))

	var (
		run                domain.RunRecord
		traceID, statusStr string
		response, errMsg   sql.NullString
		stepsJSON          sql.NullString
	)
	err := row.Scan(&run.ID, &traceID, &run.Prompt, &response, &statusStr, &run.Iterations,
		&stepsJSON, &errMsg, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run: %w", err)
	}

	run.TraceID = domain.TraceID(traceID)
	run.Status = domain.RunStatus(statusStr)
	run.Response = response.String
	run.Error = errMsg.String
	run.Steps = []domain.StepRecord{}
	if stepsJSON.Valid && stepsJSON.String != "" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &run.Steps); err != nil {
			return domain.RunRecord{}, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	return run, nil
}

// ListRuns returns summaries of the most recent runs (newest first).
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, status, iterations, step_count, started_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []domain.RunSummary{}
	for rows.Next() {
		var s domain.RunSummary
		var statusStr string
		if err := rows.Scan(&s.ID, &s.Prompt, &statusStr, &s.Iterations, &s.StepCount, &s.StartedAt); err != nil {
			return nil, err
		}
		s.Status = domain.RunStatus(statusStr)
		out = append(out, s)
	}
	return out, rows.Err()
}
