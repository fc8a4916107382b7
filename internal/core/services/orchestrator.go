package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

// HeadCoachPrompt is the fixed instruction block sent on every orchestrator turn.
const HeadCoachPrompt = `You are the Head Coach of Vita, an AI wellness and nutrition coach.

You solve the user's request by reasoning step-by-step. Each turn you MUST output exactly one block in this format:

Thought: <your reasoning about what to do next>
Action: <one of the available actions>
Action Input: <input for the action>

Available actions:
- call_specialist(Nutrition Expert, <task>) — diet, food, nutrients, meals, ingredients
- call_specialist(Science Researcher, <task>) — evidence, research, clinical trials, medical facts
- call_specialist(Wellness Coach, <task>) — stress, exercise, sleep, mindfulness, habits
- search_nutrition(<query>) — direct lookup for nutrition data
- search_research(<query>) — direct lookup for research data
- finish(<response>) — return the final answer to the user

Rules:
- Always start with a Thought.
- Call specialists or search tools to gather info before finishing.
- You may call multiple specialists across turns if needed.
- When you have enough information, use finish() with your complete, friendly final response.
- Do NOT output anything after "Action Input:".
`

const synthesisPrompt = "You are the Head Coach of Vita, an AI wellness and nutrition coach. " +
	"Synthesize everything gathered so far into one concise, friendly response."

// Orchestrator drives the Head Coach ReAct loop: prompt, parse, dispatch, observe,
// for at most domain.MaxIterations turns, then forces a synthesized answer.
// It keeps no state between runs, so one instance can serve concurrent runs.
type Orchestrator struct {
	logger     *slog.Logger
	llm        ports.ChatModel
	dispatcher *ActionDispatcher
	tracer     *TraceCollector
	maxIters   int
}

// NewOrchestrator creates the loop controller. tracer may be nil.
func NewOrchestrator(logger *slog.Logger, llm ports.ChatModel, dispatcher *ActionDispatcher, tracer *TraceCollector) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		llm:        llm,
		dispatcher: dispatcher,
		tracer:     tracer,
		maxIters:   domain.MaxIterations,
	}
}

// reactRun is the state owned by a single Run call.
type reactRun struct {
	prompt     string
	scratchpad strings.Builder
	trail      []domain.StepRecord
	iteration  int
}

// Run answers prompt and returns the final answer with the step trail.
// Only a generation backend failure makes it return an error.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (string, []domain.StepRecord, error) {
	answer, trail, _, err := o.RunWithStats(ctx, prompt)
	return answer, trail, err
}

// RunWithStats is Run plus how the run terminated. On error the trail collected
// so far is still returned.
func (o *Orchestrator) RunWithStats(ctx context.Context, prompt string) (string, []domain.StepRecord, domain.RunStats, error) {
	run := &reactRun{prompt: prompt}

	for run.iteration < o.maxIters {
		messages := []domain.ChatMessage{
			{Role: domain.ChatRoleSystem, Content: HeadCoachPrompt},
			{Role: domain.ChatRoleUser, Content: strings.TrimSpace(fmt.Sprintf("User request: %s\n\n%s", prompt, run.scratchpad.String()))},
		}

		output, err := o.chat(ctx, fmt.Sprintf("llm.chat (iter %d)", run.iteration+1), messages, run)
		if err != nil {
			return "", run.trail, o.stats(run, false), err
		}

		turn := ParseReactOutput(output)
		o.logger.Info("orchestrator iteration",
			"iteration", run.iteration+1,
			"thought", truncate(turn.Thought, 80),
			"action", truncate(turn.Action, 80),
		)

		if answer, ok := MatchFinish(turn.Action, turn.ActionInput); ok {
			run.iteration++
			return answer, run.trail, o.stats(run, false), nil
		}

		observation, err := o.dispatcher.Dispatch(ctx, turn.Action, turn.ActionInput, &run.trail)
		if err != nil {
			return "", run.trail, o.stats(run, false), fmt.Errorf("dispatch %q: %w", truncate(turn.Action, 80), err)
		}

		fmt.Fprintf(&run.scratchpad, "\nThought: %s\nAction: %s\nAction Input: %s\nObservation: %s\n",
			turn.Thought, turn.Action, turn.ActionInput, observation)
		run.iteration++
	}

	o.logger.Warn("max iterations reached, forcing synthesis", "max_iterations", o.maxIters)
	answer, err := o.forceFinish(ctx, run)
	if err != nil {
		return "", run.trail, o.stats(run, true), err
	}
	return answer, run.trail, o.stats(run, true), nil
}

// forceFinish asks for one final answer built from everything gathered so far.
// Its output is returned as-is and never parsed for further actions.
func (o *Orchestrator) forceFinish(ctx context.Context, run *reactRun) (string, error) {
	messages := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: synthesisPrompt},
		{Role: domain.ChatRoleUser, Content: fmt.Sprintf(
			"User request: %s\n\nResearch so far:\n%s\n\nPlease provide your final answer now.",
			run.prompt, run.scratchpad.String(),
		)},
	}
	return o.chat(ctx, "llm.synthesize", messages, run)
}

// chat calls the generation backend and records the step unconditionally on success.
func (o *Orchestrator) chat(ctx context.Context, spanName string, messages []domain.ChatMessage, run *reactRun) (string, error) {
	spanCtx, spanID := o.tracer.StartSpan(ctx, spanName, domain.SpanKindLLM, map[string]string{
		"module":    domain.OrchestratorModule,
		"iteration": fmt.Sprintf("%d", run.iteration+1),
	})
	userContent := messages[len(messages)-1].Content
	o.tracer.SetSpanInput(spanID, tailBytes(userContent, 500))

	output, raw, err := o.llm.Chat(spanCtx, messages)
	if err != nil {
		o.tracer.EndSpan(spanID, domain.SpanStatusError, "", err.Error())
		return "", fmt.Errorf("llm chat: %w: %w", domain.ErrGeneration, err)
	}
	o.tracer.EndSpan(spanID, domain.SpanStatusOK, output, "")

	run.trail = append(run.trail, domain.StepRecord{
		Module:   domain.OrchestratorModule,
		Prompt:   map[string]any{"messages": messages},
		Response: raw,
	})
	return output, nil
}

func (o *Orchestrator) stats(run *reactRun, forced bool) domain.RunStats {
	return domain.RunStats{Iterations: run.iteration, Forced: forced}
}
