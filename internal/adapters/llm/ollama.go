package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manthysbr/vita/internal/core/domain"
)

// OllamaProvider implements domain.LLMProvider against a local Ollama instance.
type OllamaProvider struct {
	baseURL      string
	defaultModel string
	temperature  float64
	maxTokens    int
	client       *http.Client
}

var _ domain.LLMProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, defaultModel string, temperature float64, maxTokens int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if defaultModel == "" {
		defaultModel = "qwen2.5:latest"
	}
	return &OllamaProvider{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		temperature:  temperature,
		maxTokens:    maxTokens,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string            `json:"model"`
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// Chat uses the provider's default model.
func (p *OllamaProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	return p.ChatWithModel(ctx, messages, "")
}

// ChatWithModel calls /api/chat with streaming disabled.
func (p *OllamaProvider) ChatWithModel(ctx context.Context, messages []domain.ChatMessage, modelID string) (string, domain.RawResponse, error) {
	if modelID == "" {
		modelID = p.defaultModel
	}

	reqBody := ollamaChatRequest{
		Model:    modelID,
		Messages: make([]ollamaChatMessage, 0, len(messages)),
		Stream:   false,
		Options: ollamaOptions{
			Temperature: p.temperature,
			NumCtx:      contextWindowFor(messages, p.maxTokens),
			NumPredict:  p.maxTokens,
		},
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, ollamaChatMessage{Role: string(m.Role), Content: m.Content})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("ollama connection failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != "" {
		return "", nil, fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	raw := domain.RawResponse{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return chatResp.Message.Content, raw, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
