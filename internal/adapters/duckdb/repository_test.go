package duckdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "vita.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_Runs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := domain.RunRecord{
		ID:        "run-1",
		TraceID:   "trace-1",
		Prompt:    "What should I eat before a run?",
		Status:    domain.RunStatusRunning,
		StartedAt: started,
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	// Update with the final outcome
	finished := started.Add(2 * time.Second)
	run.Status = domain.RunStatusFinished
	run.Response = "A banana."
	run.Iterations = 2
	run.FinishedAt = &finished
	run.Steps = []domain.StepRecord{
		{Module: domain.OrchestratorModule, Prompt: map[string]any{"messages": []any{}}, Response: map[string]any{"content": "Action: finish(A banana.)"}},
		{Module: "Nutrition Expert", Prompt: map[string]any{"task": "pre-run snack"}, Response: map[string]any{"error": "timeout"}},
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFinished, got.Status)
	assert.Equal(t, "A banana.", got.Response)
	assert.Equal(t, domain.TraceID("trace-1"), got.TraceID)
	assert.Equal(t, 2, got.Iterations)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "Nutrition Expert", got.Steps[1].Module)
	assert.Equal(t, "timeout", got.Steps[1].Response["error"])
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, finished, *got.FinishedAt, time.Second)

	list, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].StepCount)

	_, err = repo.GetRun(ctx, "run-missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRepository_ListRunsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []domain.RunID{"run-a", "run-b", "run-c"} {
		require.NoError(t, repo.SaveRun(ctx, domain.RunRecord{
			ID: id, Prompt: "p", Status: domain.RunStatusFinished,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.RunID("run-c"), list[0].ID)
	assert.Equal(t, domain.RunID("run-b"), list[1].ID)
}

func TestRepository_Traces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := time.Now().UTC()
	end := start.Add(150 * time.Millisecond)
	trace := &domain.Trace{
		ID:         "trace-1",
		RootSpanID: "span-root",
		RunID:      "run-1",
		Name:       "coach: hi",
		Status:     domain.SpanStatusOK,
		StartTime:  start,
		EndTime:    &end,
		DurationMs: 150,
		SpanCount:  2,
		Spans: []domain.Span{
			{ID: "span-root", TraceID: "trace-1", Name: "coach: hi", Kind: domain.SpanKindRun, Status: domain.SpanStatusOK,
				Attributes: map[string]string{"run_id": "run-1"}, StartTime: start, EndTime: &end, DurationMs: 150},
			{ID: "span-llm", ParentID: "span-root", TraceID: "trace-1", Name: "llm.chat (iter 1)", Kind: domain.SpanKindLLM,
				Status: domain.SpanStatusOK, Input: "User request: hi", Output: "Action: finish(hi)",
				StartTime: start.Add(time.Millisecond), EndTime: &end, DurationMs: 149},
		},
	}
	require.NoError(t, repo.SaveTrace(ctx, trace))
	// Saving twice must upsert, not duplicate
	require.NoError(t, repo.SaveTrace(ctx, trace))

	got, err := repo.GetTrace(ctx, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunID("run-1"), got.RunID)
	assert.Equal(t, int64(150), got.DurationMs)
	require.Len(t, got.Spans, 2)
	assert.Equal(t, domain.SpanID("span-root"), got.Spans[0].ID)
	assert.Equal(t, []domain.SpanID{"span-llm"}, got.Spans[0].Children)
	assert.Equal(t, "run-1", got.Spans[0].Attributes["run_id"])
	assert.Equal(t, domain.SpanID("span-root"), got.Spans[1].ParentID)
	assert.Equal(t, "Action: finish(hi)", got.Spans[1].Output)

	list, err := repo.ListTraces(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].SpanCount)

	_, err = repo.GetTrace(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrTraceNotFound)
}

func TestRepository_Settings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetSetting(ctx, "app_config")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, repo.SaveSetting(ctx, "app_config", `{"a":1}`))
	require.NoError(t, repo.SaveSetting(ctx, "app_config", `{"a":2}`))

	v, err := repo.GetSetting(ctx, "app_config")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, v)
}

func TestKnowledgeBase_Lookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	kb := NewKnowledgeBase(repo, 2)

	n, err := kb.Ingest(ctx, domain.CollectionNutrition, []domain.KnowledgeDoc{
		{Title: "Spinach", Content: "Spinach is rich in iron and folate."},
		{Title: "Lentils", Content: "Lentils provide protein and iron."},
		{Title: "Oats", Content: "Oats contain beta-glucan fiber."},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = kb.Ingest(ctx, domain.CollectionResearch, []domain.KnowledgeDoc{
		{Title: "Iron absorption trial", Content: "Vitamin C improves non-heme iron absorption."},
	})
	require.NoError(t, err)

	nutrition := kb.Collection(domain.CollectionNutrition)

	out, err := nutrition.Lookup(ctx, "spinach iron")
	require.NoError(t, err)
	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2, "top-k caps the result")
	assert.Equal(t, "[Spinach]\nSpinach is rich in iron and folate.", blocks[0])
	assert.Equal(t, "[Lentils]\nLentils provide protein and iron.", blocks[1])

	out, err = nutrition.Lookup(ctx, "quantum chromodynamics")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = nutrition.Lookup(ctx, "is it ok")
	require.NoError(t, err)
	assert.Empty(t, out, "short terms are ignored")

	out, err = kb.Collection(domain.CollectionResearch).Lookup(ctx, "iron")
	require.NoError(t, err)
	assert.Equal(t, "[Iron absorption trial]\nVitamin C improves non-heme iron absorption.", out)

	kb.SetTopK(1)
	out, err = nutrition.Lookup(ctx, "iron")
	require.NoError(t, err)
	assert.NotContains(t, out, "\n\n")
}

func TestKnowledgeBase_IngestJSONL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	kb := NewKnowledgeBase(repo, 3)

	input := `{"title": "Creatine", "content": "Creatine monohydrate is well studied.", "source": "review-2021"}

{"title": "Caffeine", "content": "Caffeine improves endurance performance."}
`
	n, err := kb.IngestJSONL(ctx, domain.CollectionResearch, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	docs, err := repo.SearchDocs(ctx, domain.CollectionResearch, "creatine", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "review-2021", docs[0].Source)
	assert.Equal(t, domain.CollectionResearch, docs[0].Collection)

	_, err = kb.IngestJSONL(ctx, domain.CollectionResearch, strings.NewReader("{\"title\": \"x\"}\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = kb.IngestJSONL(ctx, domain.CollectionResearch, strings.NewReader("not json\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"omega-3", "and", "heart", "health"}, searchTerms("Omega-3 and heart HEALTH? heart"))
	assert.Empty(t, searchTerms("a an to"))
}
