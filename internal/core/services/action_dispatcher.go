package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

const (
	noNutritionData = "No nutrition data found."
	noResearchData  = "No research data found."
)

// ActionDispatcher executes a classified action against the specialist and
// retrieval backends and turns the outcome into an observation string.
// It holds no per-run state.
type ActionDispatcher struct {
	logger      *slog.Logger
	specialists ports.SpecialistBackend
	nutrition   ports.Retriever
	research    ports.Retriever
	tracer      *TraceCollector
}

// NewActionDispatcher creates a dispatcher. tracer may be nil.
func NewActionDispatcher(
	logger *slog.Logger,
	specialists ports.SpecialistBackend,
	nutrition ports.Retriever,
	research ports.Retriever,
	tracer *TraceCollector,
) *ActionDispatcher {
	return &ActionDispatcher{
		logger:      logger,
		specialists: specialists,
		nutrition:   nutrition,
		research:    research,
		tracer:      tracer,
	}
}

// Dispatch runs action and returns the observation to feed back to the model.
// Specialist failures are recorded on trail and reported as an observation;
// retrieval backend errors are returned to the caller.
func (d *ActionDispatcher) Dispatch(ctx context.Context, action, actionInput string, trail *[]domain.StepRecord) (string, error) {
	intent := ClassifyAction(action, actionInput)

	switch intent.Kind {
	case domain.ActionCallSpecialist:
		return d.callSpecialist(ctx, intent.Specialist, intent.Task, trail)

	case domain.ActionSearchNutrition:
		result, err := d.lookup(ctx, domain.CollectionNutrition, d.nutrition, intent.Query)
		if err != nil {
			return "", err
		}
		if result == "" {
			return noNutritionData, nil
		}
		return result, nil

	case domain.ActionSearchResearch:
		result, err := d.lookup(ctx, domain.CollectionResearch, d.research, intent.Query)
		if err != nil {
			return "", err
		}
		if result == "" {
			return noResearchData, nil
		}
		return result, nil

	case domain.ActionFinish:
		return intent.Response, nil

	default:
		d.logger.Warn("unknown action", "action", truncate(action, 120))
		return "Unknown action: " + action, nil
	}
}

func (d *ActionDispatcher) callSpecialist(ctx context.Context, name, task string, trail *[]domain.StepRecord) (string, error) {
	specCtx, err := d.specialistContext(ctx, name, task)
	if err != nil {
		return "", err
	}

	spanCtx, spanID := d.tracer.StartSpan(ctx, "specialist."+name, domain.SpanKindSpecialist, map[string]string{
		"specialist":   name,
		"context_size": fmt.Sprintf("%d", len(specCtx)),
	})
	d.tracer.SetSpanInput(spanID, task)

	response, step, err := d.specialists.Run(spanCtx, name, task, specCtx)
	if err != nil {
		d.logger.Error("specialist failed", "specialist", name, "error", err)
		d.tracer.EndSpan(spanID, domain.SpanStatusError, "", err.Error())
		*trail = append(*trail, domain.StepRecord{
			Module:   name,
			Prompt:   map[string]any{"task": task},
			Response: map[string]any{"error": err.Error()},
		})
		return fmt.Sprintf("Error calling %s: %v", name, err), nil
	}

	d.tracer.EndSpan(spanID, domain.SpanStatusOK, response, "")
	*trail = append(*trail, step)
	return response, nil
}

// specialistContext injects retrieved knowledge for specialists that have a collection.
func (d *ActionDispatcher) specialistContext(ctx context.Context, name, task string) (string, error) {
	switch domain.Specialist(name) {
	case domain.SpecialistNutritionExpert:
		return d.lookup(ctx, domain.CollectionNutrition, d.nutrition, task)
	case domain.SpecialistScienceResearcher:
		return d.lookup(ctx, domain.CollectionResearch, d.research, task)
	default:
		return "", nil
	}
}

func (d *ActionDispatcher) lookup(ctx context.Context, collection string, r ports.Retriever, query string) (string, error) {
	if r == nil {
		return "", nil
	}

	spanCtx, spanID := d.tracer.StartSpan(ctx, "retrieval."+collection, domain.SpanKindRetrieval, map[string]string{
		"collection": collection,
	})
	d.tracer.SetSpanInput(spanID, query)

	result, err := r.Lookup(spanCtx, query)
	if err != nil {
		d.tracer.EndSpan(spanID, domain.SpanStatusError, "", err.Error())
		return "", fmt.Errorf("%s lookup: %w", collection, err)
	}
	d.tracer.EndSpan(spanID, domain.SpanStatusOK, result, "")
	return result, nil
}
