package domain

import (
	"context"
	"errors"
)

// ChatRole tags the author of a chat message
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one role-tagged message sent to a generation backend
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// RawResponse is the backend's response record, kept for the audit trail
type RawResponse map[string]any

// StepRecord is one audit entry: a backend invocation's prompt and response (or error).
// Records are appended to a run's trail and never mutated afterwards.
type StepRecord struct {
	Module   string         `json:"module"`
	Prompt   map[string]any `json:"prompt"`
	Response map[string]any `json:"response"`
}

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrTraceNotFound = errors.New("trace not found")

	// ErrGeneration marks failures of the chat backend driving the coach loop.
	ErrGeneration = errors.New("generation backend failed")
)

// LLMProvider defines the interface for chat generation backends
type LLMProvider interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, RawResponse, error)
	// ChatWithModel uses modelID, falling back to the provider default when empty
	ChatWithModel(ctx context.Context, messages []ChatMessage, modelID string) (string, RawResponse, error)
}
