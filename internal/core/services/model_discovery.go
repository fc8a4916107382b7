package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/vita/internal/core/domain"
)

const (
	defaultOpenAIURL    = "https://api.openai.com/v1"
	defaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
)

// ModelDiscovery lists the models available on the configured generation backend.
type ModelDiscovery struct {
	logger *slog.Logger
	client *http.Client
}

// NewModelDiscovery creates a new model discovery service.
func NewModelDiscovery(logger *slog.Logger) *ModelDiscovery {
	return &ModelDiscovery{
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// ollamaTagsResponse is the Ollama /api/tags JSON structure.
type ollamaTagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Details struct {
			ParameterSize string `json:"parameter_size"`
			Family        string `json:"family"`
		} `json:"details"`
	} `json:"models"`
}

// modelListResponse is the /models shape shared by OpenAI-compatible servers
// and the Anthropic API.
type modelListResponse struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

// Discover queries the backend selected by cfg's LLM mode.
func (d *ModelDiscovery) Discover(ctx context.Context, cfg *domain.AppConfig) ([]domain.ModelSpec, error) {
	c := cfg.Providers.LLM
	switch strings.ToLower(strings.TrimSpace(c.Mode)) {
	case "", "local", "ollama":
		baseURL := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if baseURL == "" {
			baseURL = c.LocalURL
		}
		return d.DiscoverOllama(ctx, baseURL)
	case "openai", "remote":
		baseURL := c.RemoteURL
		if baseURL == "" {
			baseURL = defaultOpenAIURL
		}
		return d.discoverList(ctx, "openai", strings.TrimRight(baseURL, "/")+"/models", map[string]string{
			"Authorization": "Bearer " + c.APIKey,
		})
	case "anthropic":
		baseURL := c.RemoteURL
		if baseURL == "" {
			baseURL = defaultAnthropicURL
		}
		return d.discoverList(ctx, "anthropic", strings.TrimRight(baseURL, "/")+"/v1/models", map[string]string{
			"X-Api-Key":         c.APIKey,
			"Anthropic-Version": anthropicVersion,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider mode: %s", c.Mode)
	}
}

// DiscoverOllama queries the Ollama instance at baseURL for installed models.
func (d *ModelDiscovery) DiscoverOllama(ctx context.Context, baseURL string) ([]domain.ModelSpec, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")

	var tags ollamaTagsResponse
	if err := d.getJSON(ctx, baseURL+"/api/tags", nil, &tags); err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s: %w", baseURL, err)
	}

	models := make([]domain.ModelSpec, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, domain.ModelSpec{
			ID:       m.Name,
			Name:     m.Name,
			Provider: "ollama",
			Family:   m.Details.Family,
			Size:     m.Details.ParameterSize,
			IsLocal:  true,
		})
	}

	d.logger.Info("discovered ollama models", "count", len(models), "base_url", baseURL)
	return models, nil
}

func (d *ModelDiscovery) discoverList(ctx context.Context, provider, url string, headers map[string]string) ([]domain.ModelSpec, error) {
	var result modelListResponse
	if err := d.getJSON(ctx, url, headers, &result); err != nil {
		return nil, fmt.Errorf("%s model list: %w", provider, err)
	}

	models := make([]domain.ModelSpec, 0, len(result.Data))
	for _, m := range result.Data {
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		models = append(models, domain.ModelSpec{
			ID:       m.ID,
			Name:     name,
			Provider: provider,
		})
	}

	d.logger.Info("discovered models", "provider", provider, "count", len(models))
	return models, nil
}

func (d *ModelDiscovery) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
