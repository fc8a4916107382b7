package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(llm *scriptedLLM, specs *mockSpecialists, nutrition, research *stubRetriever, tracer *TraceCollector) *Orchestrator {
	d := NewActionDispatcher(testLogger(), specs, retrieverOrNil(nutrition), retrieverOrNil(research), tracer)
	return NewOrchestrator(testLogger(), llm, d, tracer)
}

func TestOrchestrator_FinishOnFirstTurn(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{"Thought: greet\nAction: finish(Hello there!)\nAction Input: Hello there!"}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, nil)

	answer, trail, stats, err := o.RunWithStats(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", answer)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.OrchestratorModule, trail[0].Module)
	assert.Equal(t, domain.RunStats{Iterations: 1}, stats)
	assert.Equal(t, 1, llm.callCount())
}

func TestOrchestrator_BareFinishUsesActionInput(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{"Thought: done\nAction: finish\nAction Input: Drink water."}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, nil)

	answer, _, err := o.Run(context.Background(), "hydration?")
	require.NoError(t, err)
	assert.Equal(t, "Drink water.", answer)
}

func TestOrchestrator_FirstTurnPromptShape(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{"Action: finish(ok)"}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, nil)

	_, _, err := o.Run(context.Background(), "What should I eat?")
	require.NoError(t, err)

	require.Len(t, llm.calls, 1)
	msgs := llm.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.ChatRoleSystem, msgs[0].Role)
	assert.Equal(t, HeadCoachPrompt, msgs[0].Content)
	assert.Equal(t, domain.ChatRoleUser, msgs[1].Role)
	assert.Equal(t, "User request: What should I eat?", msgs[1].Content)
}

func TestOrchestrator_ScratchpadCarriesObservations(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{
		"Thought: look it up\nAction: search_nutrition(oats)\nAction Input: oats",
		"Thought: enough\nAction: finish(Oats are great.)\nAction Input: ",
	}}
	nutrition := &stubRetriever{results: map[string]string{"oats": "[Oats]\n10g fiber per 100g."}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nutrition, nil, nil)

	answer, trail, stats, err := o.RunWithStats(context.Background(), "Are oats healthy?")
	require.NoError(t, err)
	assert.Equal(t, "Oats are great.", answer)
	assert.Len(t, trail, 2)
	assert.Equal(t, 2, stats.Iterations)
	assert.False(t, stats.Forced)

	second := llm.calls[1][1].Content
	assert.True(t, strings.HasPrefix(second, "User request: Are oats healthy?\n\n"))
	assert.Contains(t, second, "Thought: look it up\nAction: search_nutrition(oats)\nAction Input: oats\nObservation: [Oats]\n10g fiber per 100g.")
}

func TestOrchestrator_ForcedSynthesisAfterMaxIterations(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{"Thought: keep looking\nAction: search_research(sleep)\nAction Input: sleep"}}
	research := &stubRetriever{results: map[string]string{}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, research, nil)

	answer, trail, stats, err := o.RunWithStats(context.Background(), "How much sleep?")
	require.NoError(t, err)

	assert.Equal(t, domain.MaxIterations+1, llm.callCount())
	assert.Len(t, trail, domain.MaxIterations+1)
	assert.Equal(t, domain.RunStats{Iterations: domain.MaxIterations, Forced: true}, stats)
	// The synthesis output is returned verbatim, never parsed.
	assert.Equal(t, "Thought: keep looking\nAction: search_research(sleep)\nAction Input: sleep", answer)

	final := llm.calls[domain.MaxIterations]
	require.Len(t, final, 2)
	assert.Equal(t, synthesisPrompt, final[0].Content)
	assert.True(t, strings.HasPrefix(final[1].Content, "User request: How much sleep?\n\nResearch so far:\n"))
	assert.True(t, strings.HasSuffix(final[1].Content, "\n\nPlease provide your final answer now."))
	assert.Equal(t, domain.MaxIterations, strings.Count(final[1].Content, "Observation: No research data found."))
}

func TestOrchestrator_UnparseableOutputForcesSynthesis(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{"I am just chatting without any format."}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, nil)

	_, trail, stats, err := o.RunWithStats(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, stats.Forced)
	assert.Len(t, trail, domain.MaxIterations+1)
	assert.Contains(t, llm.calls[1][1].Content, "Observation: Unknown action: ")
}

func TestOrchestrator_SpecialistFailureDoesNotAbort(t *testing.T) {
	llm := &scriptedLLM{outputs: []string{
		"Thought: ask coach\nAction: call_specialist(Wellness Coach, calm down)\nAction Input: ",
		"Thought: fallback\nAction: finish(Try breathing exercises.)\nAction Input: ",
	}}
	specs := new(mockSpecialists)
	specs.On("Run", mock.Anything, "Wellness Coach", "calm down", "").
		Return("", domain.StepRecord{}, errors.New("timeout")).Once()
	o := newTestOrchestrator(llm, specs, nil, nil, nil)

	answer, trail, err := o.Run(context.Background(), "I'm stressed")
	require.NoError(t, err)
	assert.Equal(t, "Try breathing exercises.", answer)

	require.Len(t, trail, 3)
	assert.Equal(t, domain.OrchestratorModule, trail[0].Module)
	assert.Equal(t, "Wellness Coach", trail[1].Module)
	assert.Equal(t, map[string]any{"error": "timeout"}, trail[1].Response)
	assert.Equal(t, domain.OrchestratorModule, trail[2].Module)
	assert.Contains(t, llm.calls[1][1].Content, "Observation: Error calling Wellness Coach: timeout")
	specs.AssertExpectations(t)
}

func TestOrchestrator_LLMErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	llm := &scriptedLLM{err: boom}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, nil)

	answer, trail, err := o.Run(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Empty(t, answer)
	assert.Empty(t, trail)
}

func TestOrchestrator_RetrievalErrorAbortsRun(t *testing.T) {
	boom := errors.New("db closed")
	llm := &scriptedLLM{outputs: []string{"Action: search_nutrition(kale)\nAction Input: kale"}}
	o := newTestOrchestrator(llm, new(mockSpecialists), &stubRetriever{err: boom}, nil, nil)

	_, trail, err := o.Run(context.Background(), "kale?")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrGeneration)
	assert.Len(t, trail, 1)
}

func TestOrchestrator_RunsAreIndependent(t *testing.T) {
	script := []string{
		"Thought: a\nAction: search_nutrition(eggs)\nAction Input: eggs",
		"Thought: b\nAction: finish(Eggs are fine.)\nAction Input: ",
	}
	nutrition := &stubRetriever{results: map[string]string{"eggs": "[Egg]\n6g protein."}}

	first := &scriptedLLM{outputs: script}
	answer1, trail1, err := newTestOrchestrator(first, new(mockSpecialists), nutrition, nil, nil).Run(context.Background(), "eggs?")
	require.NoError(t, err)

	second := &scriptedLLM{outputs: script}
	o := newTestOrchestrator(second, new(mockSpecialists), nutrition, nil, nil)
	answer2, trail2, err := o.Run(context.Background(), "eggs?")
	require.NoError(t, err)

	assert.Equal(t, answer1, answer2)
	assert.Equal(t, trail1, trail2)
	assert.Equal(t, first.calls, second.calls)

	// Reusing the same instance must not leak the previous scratchpad.
	third := &scriptedLLM{outputs: []string{"Action: finish(ok)"}}
	o.llm = third
	_, _, err = o.Run(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "User request: fresh", third.calls[0][1].Content)
}

func TestOrchestrator_RecordsTrace(t *testing.T) {
	traces := &memoryTraces{}
	tracer := NewTraceCollector(testLogger(), traces)
	llm := &scriptedLLM{outputs: []string{"Action: finish(done)"}}
	o := newTestOrchestrator(llm, new(mockSpecialists), nil, nil, tracer)

	ctx, traceID := tracer.StartTrace(context.Background(), "coach: test", "run-x")
	_, _, err := o.Run(ctx, "test")
	require.NoError(t, err)
	tracer.EndTrace(ctx, traceID, domain.SpanStatusOK, "")

	trace, err := tracer.GetTrace(traceID)
	require.NoError(t, err)
	assert.Equal(t, 2, trace.SpanCount)
	require.Len(t, trace.Spans, 2)
	var llmSpan *domain.Span
	for i := range trace.Spans {
		if trace.Spans[i].Name == "llm.chat (iter 1)" {
			llmSpan = &trace.Spans[i]
		}
	}
	require.NotNil(t, llmSpan)
	assert.Equal(t, domain.SpanKindLLM, llmSpan.Kind)
	assert.Equal(t, domain.SpanStatusOK, llmSpan.Status)
	assert.Equal(t, "done", llmSpan.Output)
	require.Len(t, traces.traces, 1)
}

// retrieverOrNil keeps a nil *stubRetriever from becoming a non-nil interface.
func retrieverOrNil(r *stubRetriever) ports.Retriever {
	if r == nil {
		return nil
	}
	return r
}
