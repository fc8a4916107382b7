package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

// CoachService is the entry point used by the API and the CLI: it wraps one
// orchestrator run with an ID, a trace and an audit record.
type CoachService struct {
	logger       *slog.Logger
	orchestrator *Orchestrator
	runs         ports.RunRepository // optional
	tracer       *TraceCollector     // optional
}

// NewCoachService creates the service. runs and tracer may be nil.
func NewCoachService(logger *slog.Logger, orchestrator *Orchestrator, runs ports.RunRepository, tracer *TraceCollector) *CoachService {
	return &CoachService{
		logger:       logger,
		orchestrator: orchestrator,
		runs:         runs,
		tracer:       tracer,
	}
}

// Ask runs the Head Coach on prompt. The returned record is populated even when
// the generation backend fails, in which case err is non-nil.
func (s *CoachService) Ask(ctx context.Context, prompt string) (*domain.RunRecord, error) {
	runID := domain.NewRunID()
	s.logger.Info("starting coach run", "run_id", string(runID), "prompt", truncate(prompt, 120))

	traceName := "coach: " + prompt
	if len(traceName) > 80 {
		traceName = headBytes(traceName, 80) + "..."
	}
	ctx = ContextWithRun(ctx, runID)
	ctx, traceID := s.tracer.StartTrace(ctx, traceName, runID)

	record := domain.RunRecord{
		ID:        runID,
		TraceID:   traceID,
		Prompt:    prompt,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	answer, trail, stats, err := s.orchestrator.RunWithStats(ctx, prompt)
	finished := time.Now().UTC()
	record.FinishedAt = &finished
	record.Steps = trail
	record.Iterations = stats.Iterations

	switch {
	case err != nil:
		record.Status = domain.RunStatusFailed
		record.Error = err.Error()
		s.tracer.EndTrace(ctx, traceID, domain.SpanStatusError, err.Error())
	case stats.Forced:
		record.Status = domain.RunStatusForced
		record.Response = answer
		s.tracer.EndTrace(ctx, traceID, domain.SpanStatusOK, "")
	default:
		record.Status = domain.RunStatusFinished
		record.Response = answer
		s.tracer.EndTrace(ctx, traceID, domain.SpanStatusOK, "")
	}

	s.persist(ctx, record)

	if err != nil {
		s.logger.Error("coach run failed", "run_id", string(runID), "error", err)
		return &record, fmt.Errorf("run %s: %w", runID, err)
	}

	s.logger.Info("coach run finished",
		"run_id", string(runID),
		"status", string(record.Status),
		"iterations", record.Iterations,
		"steps", len(record.Steps),
	)
	return &record, nil
}

// GetRun returns a stored run record.
func (s *CoachService) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	if s.runs == nil {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	return s.runs.GetRun(ctx, id)
}

// ListRuns returns the most recent run summaries.
func (s *CoachService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.runs == nil {
		return []domain.RunSummary{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

func (s *CoachService) persist(ctx context.Context, record domain.RunRecord) {
	if s.runs == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runs.SaveRun(saveCtx, record); err != nil {
		s.logger.Error("failed to persist run", "run_id", string(record.ID), "error", err)
	}
}
