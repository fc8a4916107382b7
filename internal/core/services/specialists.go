package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

// SpecialistRunner executes delegated tasks. Each specialist is a single chat call
// made with its own system prompt and, when available, retrieved reference context.
type SpecialistRunner struct {
	logger   *slog.Logger
	router   *ModelRouter
	profiles map[domain.Specialist]domain.SpecialistProfile
}

var _ ports.SpecialistBackend = (*SpecialistRunner)(nil)

// NewSpecialistRunner creates a runner over the built-in specialist roster.
func NewSpecialistRunner(logger *slog.Logger, router *ModelRouter) *SpecialistRunner {
	profiles := make(map[domain.Specialist]domain.SpecialistProfile)
	for _, p := range domain.BuiltinSpecialists() {
		profiles[p.Name] = p
	}
	return &SpecialistRunner{
		logger:   logger,
		router:   router,
		profiles: profiles,
	}
}

// Run executes task on the named specialist.
func (r *SpecialistRunner) Run(ctx context.Context, specialist string, task string, refContext string) (string, domain.StepRecord, error) {
	name, ok := domain.LookupSpecialist(specialist)
	if !ok {
		return "", domain.StepRecord{}, fmt.Errorf("%w: %q", domain.ErrUnknownSpecialist, specialist)
	}
	profile := r.profiles[name]

	messages := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: profile.SystemPrompt},
		{Role: domain.ChatRoleUser, Content: buildSpecialistTask(task, refContext)},
	}

	runID, _ := GetRunFromContext(ctx)
	r.logger.Info("specialist started",
		"run_id", string(runID),
		"specialist", string(name),
		"task", truncate(task, 80),
		"context_len", len(refContext),
	)

	response, raw, err := r.router.Chat(ctx, string(name), messages)
	if err != nil {
		return "", domain.StepRecord{}, fmt.Errorf("chat: %w", err)
	}

	step := domain.StepRecord{
		Module: string(name),
		Prompt: map[string]any{
			"messages": messages,
			"task":     task,
		},
		Response: raw,
	}
	return response, step, nil
}

// Profiles returns the specialist roster in canonical order.
func (r *SpecialistRunner) Profiles() []domain.SpecialistProfile {
	return domain.BuiltinSpecialists()
}

func buildSpecialistTask(task, refContext string) string {
	if refContext == "" {
		return "Task: " + task
	}
	return fmt.Sprintf("Task: %s\n\nRelevant context:\n%s", task, refContext)
}
