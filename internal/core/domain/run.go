package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies one orchestration run
type RunID string

// NewRunID generates a run ID (run-<uuid>)
func NewRunID() RunID {
	return RunID("run-" + uuid.NewString())
}

// RunStatus is the terminal state of a run
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished" // model emitted finish
	RunStatusForced   RunStatus = "forced"   // budget exhausted, answer synthesized
	RunStatusFailed   RunStatus = "failed"   // generation backend failed
)

// RunRecord is the audit record of one run. It is stored for inspection only
// and never fed back into a later run's prompt.
type RunRecord struct {
	ID         RunID        `json:"id"`
	TraceID    TraceID      `json:"trace_id,omitempty"`
	Prompt     string       `json:"prompt"`
	Response   string       `json:"response"`
	Status     RunStatus    `json:"status"`
	Iterations int          `json:"iterations"`
	Steps      []StepRecord `json:"steps"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// RunSummary is a lightweight view for listing runs
type RunSummary struct {
	ID         RunID     `json:"id"`
	Prompt     string    `json:"prompt"`
	Status     RunStatus `json:"status"`
	Iterations int       `json:"iterations"`
	StepCount  int       `json:"step_count"`
	StartedAt  time.Time `json:"started_at"`
}

// RunStats reports how a run terminated
type RunStats struct {
	Iterations int  `json:"iterations"`
	Forced     bool `json:"forced"`
}
