package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements domain.LLMProvider using an OpenAI-compatible API.
// Works with: OpenAI, Azure OpenAI, Together AI, local Ollama /v1, etc.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

var _ domain.LLMProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI-compatible provider. An empty baseURL
// uses the SDK default endpoint.
func NewOpenAIProvider(baseURL, apiKey, model string, temperature float64, maxTokens int) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIProvider{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	return p.ChatWithModel(ctx, messages, "")
}

// ChatWithModel calls chat completions, falling back to the provider model when modelID is empty.
func (p *OpenAIProvider) ChatWithModel(ctx context.Context, messages []domain.ChatMessage, modelID string) (string, domain.RawResponse, error) {
	if modelID == "" {
		modelID = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: toOpenAIMessages(messages),
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	return content, rawFromJSON(resp.RawJSON(), modelID, content), nil
}

func toOpenAIMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.ChatRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case domain.ChatRoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// rawFromJSON decodes the SDK's raw response body, or builds a minimal record
// when the body is unavailable.
func rawFromJSON(rawJSON, model, content string) domain.RawResponse {
	raw := domain.RawResponse{}
	if rawJSON != "" && json.Unmarshal([]byte(rawJSON), &raw) == nil {
		return raw
	}
	return domain.RawResponse{"model": model, "content": content}
}
