package domain

// ModelSpec describes a model the configured backend can serve. It is listed so
// operators can pin models per module in ModelConfig.
type ModelSpec struct {
	ID       string `json:"id"`               // "qwen2.5:3b", "gpt-4o-mini"
	Name     string `json:"name"`             // human-readable when the backend provides one
	Provider string `json:"provider"`         // "ollama", "openai", "anthropic"
	Family   string `json:"family,omitempty"` // ollama only
	Size     string `json:"size,omitempty"`   // parameter count: "3B", "7B"
	IsLocal  bool   `json:"is_local"`         // true = Ollama / local inference
}
