package providers

import (
	"fmt"
	"os"
	"strings"

	"github.com/manthysbr/vita/internal/adapters/llm"
	"github.com/manthysbr/vita/internal/core/domain"
)

// Build creates the LLM provider from app configuration.
// It hides local/remote provider selection from callers.
func Build(config *domain.AppConfig) (domain.LLMProvider, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	c := config.Providers.LLM

	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	switch mode {
	case "", "local", "ollama":
		baseURL := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if baseURL == "" {
			baseURL = strings.TrimSpace(c.LocalURL)
		}
		return llm.NewOllamaProvider(normalizeOllamaBaseURL(baseURL), strings.TrimSpace(c.DefaultModel), c.Temperature, c.MaxTokens), nil
	case "openai", "remote":
		remoteURL := strings.TrimSpace(c.RemoteURL)
		if mode == "remote" && remoteURL == "" {
			return nil, fmt.Errorf("llm remote_url is required when mode=remote")
		}
		if remoteURL == "" && strings.TrimSpace(c.APIKey) == "" {
			return nil, fmt.Errorf("llm api_key is required when mode=openai")
		}
		return llm.NewOpenAIProvider(remoteURL, strings.TrimSpace(c.APIKey), strings.TrimSpace(c.DefaultModel), c.Temperature, c.MaxTokens), nil
	case "anthropic":
		if strings.TrimSpace(c.APIKey) == "" {
			return nil, fmt.Errorf("llm api_key is required when mode=anthropic")
		}
		return llm.NewAnthropicProvider(strings.TrimSpace(c.RemoteURL), strings.TrimSpace(c.APIKey), strings.TrimSpace(c.DefaultModel), c.Temperature, c.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider mode: %s", c.Mode)
	}
}

func normalizeOllamaBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return strings.TrimSuffix(trimmed, "/v1")
	}
	return trimmed
}
