package services

import (
	"context"

	"github.com/manthysbr/vita/internal/core/domain"
)

// Use a private type for context keys to avoid collisions
type serviceContextKey string

const (
	ctxKeyRunID serviceContextKey = "run_id"
)

// ContextWithRun injects the RunID into the context
func ContextWithRun(ctx context.Context, id domain.RunID) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, id)
}

// GetRunFromContext retrieves the RunID from the context
func GetRunFromContext(ctx context.Context) (domain.RunID, bool) {
	id, ok := ctx.Value(ctxKeyRunID).(domain.RunID)
	return id, ok
}
