package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

// ModelRouter resolves which model serves a given module (the orchestrator or a
// named specialist) and forwards chat calls to the current provider.
// The provider and the module → model map can be swapped at runtime on settings change.
type ModelRouter struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	provider domain.LLMProvider

	// moduleDefaults maps module name → model ID; missing means provider default
	moduleDefaults map[string]string
}

// NewModelRouter creates a router with the given base LLM provider.
func NewModelRouter(logger *slog.Logger, provider domain.LLMProvider) *ModelRouter {
	return &ModelRouter{
		logger:         logger,
		provider:       provider,
		moduleDefaults: make(map[string]string),
	}
}

// ResolveModel returns the model pinned for module, or "" for the provider default.
func (r *ModelRouter) ResolveModel(module string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.moduleDefaults[module]
}

// Chat sends messages on behalf of module.
func (r *ModelRouter) Chat(ctx context.Context, module string, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	modelID := r.ResolveModel(module)

	r.mu.RLock()
	provider := r.provider
	r.mu.RUnlock()

	r.logger.Debug("model router chat", "module", module, "model", modelID)
	return provider.ChatWithModel(ctx, messages, modelID)
}

// For binds the router to one module so it can be handed out as a ports.ChatModel.
func (r *ModelRouter) For(module string) ports.ChatModel {
	return moduleModel{router: r, module: module}
}

// UpdateProvider hot-swaps the underlying LLM provider (called on settings change).
func (r *ModelRouter) UpdateProvider(p domain.LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = p
}

// SetModuleDefault pins modelID for module; an empty modelID removes the pin.
func (r *ModelRouter) SetModuleDefault(module, modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if modelID == "" {
		delete(r.moduleDefaults, module)
		return
	}
	r.moduleDefaults[module] = modelID
}

// ApplyConfig replaces all module pins with the ones in cfg.
func (r *ModelRouter) ApplyConfig(cfg *domain.AppConfig) {
	pins := make(map[string]string, len(cfg.Models.Specialists)+1)
	if cfg.Models.Orchestrator != "" {
		pins[domain.OrchestratorModule] = cfg.Models.Orchestrator
	}
	for name, model := range cfg.Models.Specialists {
		if model == "" {
			continue
		}
		pins[domain.NormalizeSpecialist(name)] = model
	}

	r.mu.Lock()
	r.moduleDefaults = pins
	r.mu.Unlock()
}

// GetModuleDefaults returns the current module → model mapping.
func (r *ModelRouter) GetModuleDefaults() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.moduleDefaults))
	for k, v := range r.moduleDefaults {
		out[k] = v
	}
	return out
}

type moduleModel struct {
	router *ModelRouter
	module string
}

func (m moduleModel) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	return m.router.Chat(ctx, m.module, messages)
}
