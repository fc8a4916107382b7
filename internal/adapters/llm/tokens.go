package llm

import (
	"sync"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/pkoukk/tiktoken-go"
)

const (
	perMessageOverhead = 4
	minContextWindow   = 4096
	maxContextWindow   = 32768
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// EstimateTokens counts tokens with the cl100k_base encoding, falling back to
// a chars/4 estimate when the encoding is unavailable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// EstimateMessagesTokens sums EstimateTokens over messages plus per-message framing.
func EstimateMessagesTokens(messages []domain.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += perMessageOverhead + EstimateTokens(m.Content)
	}
	return total
}

// contextWindowFor picks a power-of-two context size that fits the prompt with
// room left for the reply.
func contextWindowFor(messages []domain.ChatMessage, replyTokens int) int {
	need := EstimateMessagesTokens(messages) + replyTokens
	window := minContextWindow
	for window < need && window < maxContextWindow {
		window *= 2
	}
	return window
}
