package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLLM replays canned outputs in order, repeating the last one when exhausted.
type scriptedLLM struct {
	mu      sync.Mutex
	outputs []string
	err     error
	calls   [][]domain.ChatMessage
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", nil, s.err
	}
	i := len(s.calls) - 1
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return s.outputs[i], domain.RawResponse{"content": s.outputs[i]}, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeProvider is a domain.LLMProvider that echoes the model it was asked for.
type fakeProvider struct {
	mu     sync.Mutex
	reply  string
	err    error
	models []string
}

func (p *fakeProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	return p.ChatWithModel(ctx, messages, "")
}

func (p *fakeProvider) ChatWithModel(ctx context.Context, messages []domain.ChatMessage, modelID string) (string, domain.RawResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models = append(p.models, modelID)
	if p.err != nil {
		return "", nil, p.err
	}
	return p.reply, domain.RawResponse{"model": modelID, "content": p.reply}, nil
}

type mockSpecialists struct {
	mock.Mock
}

func (m *mockSpecialists) Run(ctx context.Context, specialist string, task string, refContext string) (string, domain.StepRecord, error) {
	args := m.Called(ctx, specialist, task, refContext)
	return args.String(0), args.Get(1).(domain.StepRecord), args.Error(2)
}

// stubRetriever answers from a fixed map and records the queries it saw.
type stubRetriever struct {
	mu      sync.Mutex
	results map[string]string
	err     error
	queries []string
}

func (r *stubRetriever) Lookup(ctx context.Context, query string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return "", r.err
	}
	return r.results[query], nil
}

// memoryRuns is an in-memory ports.RunRepository.
type memoryRuns struct {
	mu   sync.Mutex
	runs map[domain.RunID]domain.RunRecord
	err  error
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{runs: make(map[domain.RunID]domain.RunRecord)}
}

func (m *memoryRuns) SaveRun(ctx context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memoryRuns) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	return r, nil
}

func (m *memoryRuns) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RunSummary{}
	for _, r := range m.runs {
		out = append(out, domain.RunSummary{ID: r.ID, Prompt: r.Prompt, Status: r.Status, StepCount: len(r.Steps)})
	}
	return out, nil
}

// memoryTraces records traces handed to SaveTrace.
type memoryTraces struct {
	mu     sync.Mutex
	traces []*domain.Trace
}

func (m *memoryTraces) SaveTrace(ctx context.Context, trace *domain.Trace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces = append(m.traces, trace)
	return nil
}
