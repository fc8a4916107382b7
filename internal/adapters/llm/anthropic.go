package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/manthysbr/vita/internal/core/domain"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicProvider implements domain.LLMProvider using the Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

var _ domain.LLMProvider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(baseURL, apiKey, model string, temperature float64, maxTokens int) *AnthropicProvider {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &AnthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, domain.RawResponse, error) {
	return p.ChatWithModel(ctx, messages, "")
}

// ChatWithModel sends system messages as system blocks and the rest as turns.
func (p *AnthropicProvider) ChatWithModel(ctx context.Context, messages []domain.ChatMessage, modelID string) (string, domain.RawResponse, error) {
	if modelID == "" {
		modelID = p.model
	}

	system, turns := toAnthropicMessages(messages)
	if len(turns) == 0 {
		return "", nil, fmt.Errorf("anthropic chat requires at least one user message")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(p.maxTokens),
		Messages:  turns,
	}
	if len(system) > 0 {
		params.System = system
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic chat: %w", err)
	}

	content := collectText(msg.Content)
	return content, rawFromJSON(msg.RawJSON(), modelID, content), nil
}

func toAnthropicMessages(messages []domain.ChatMessage) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.ChatRoleSystem:
			if text := strings.TrimSpace(m.Content); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case domain.ChatRoleAssistant:
			turns = append(turns, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		default:
			turns = append(turns, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		}
	}
	return system, turns
}

func collectText(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}
	return sb.String()
}
