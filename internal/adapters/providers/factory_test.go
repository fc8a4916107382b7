package providers

import (
	"testing"

	"github.com/manthysbr/vita/internal/adapters/llm"
	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	p, err := Build(nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.OllamaProvider{}, p)

	cfg := domain.DefaultConfig()
	cfg.Providers.LLM.Mode = "openai"
	cfg.Providers.LLM.APIKey = "sk-test"
	p, err = Build(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAIProvider{}, p)

	cfg.Providers.LLM.Mode = "Anthropic"
	p, err = Build(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.AnthropicProvider{}, p)
}

func TestBuild_Errors(t *testing.T) {
	cfg := domain.DefaultConfig()

	cfg.Providers.LLM.Mode = "remote"
	_, err := Build(cfg)
	assert.ErrorContains(t, err, "remote_url is required")

	cfg.Providers.LLM.Mode = "anthropic"
	_, err = Build(cfg)
	assert.ErrorContains(t, err, "api_key is required")

	cfg.Providers.LLM.Mode = "carrier-pigeon"
	_, err = Build(cfg)
	assert.ErrorContains(t, err, "unsupported llm provider mode")
}

func TestNormalizeOllamaBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", normalizeOllamaBaseURL("http://localhost:11434/v1/"))
	assert.Equal(t, "http://gpu-box:11434", normalizeOllamaBaseURL(" http://gpu-box:11434 "))
}
