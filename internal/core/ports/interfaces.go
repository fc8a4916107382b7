package ports

import (
	"context"

	"github.com/manthysbr/vita/internal/core/domain"
)

// ChatModel is a generation backend bound to one model.
type ChatModel interface {
	// Chat sends role-tagged messages and returns the generated text plus the
	// backend's raw response record. Transport failures are returned as errors.
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error)
}

// SpecialistBackend executes a task on a named specialist.
type SpecialistBackend interface {
	// Run returns the specialist's answer and the step record describing the call.
	Run(ctx context.Context, specialist string, task string, context string) (string, domain.StepRecord, error)
}

// Retriever is a knowledge lookup. An empty string means no result.
type Retriever interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// RunRepository persists run audit records.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
	GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Repository abstracts the persistent storage (DuckDB)
type Repository interface {
	RunRepository

	// Traces
	SaveTrace(ctx context.Context, trace *domain.Trace) error
	ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error)
	GetTrace(ctx context.Context, id domain.TraceID) (*domain.Trace, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error

	// Knowledge
	IngestDocs(ctx context.Context, docs []domain.KnowledgeDoc) (int, error)
	SearchDocs(ctx context.Context, collection string, query string, limit int) ([]domain.KnowledgeDoc, error)
}
