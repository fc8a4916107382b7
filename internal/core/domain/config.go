package domain

// ProviderConfig holds configuration for the generation backend
type ProviderConfig struct {
	LLM LLMProviderConfig `json:"llm" toml:"llm"`
}

// LLMProviderConfig configures the LLM provider
type LLMProviderConfig struct {
	Mode         string  `json:"mode" toml:"mode"`                   // "local", "openai" or "anthropic"
	LocalURL     string  `json:"local_url" toml:"local_url"`         // "http://localhost:11434"
	RemoteURL    string  `json:"remote_url" toml:"remote_url"`       // "https://api.openai.com/v1"
	APIKey       string  `json:"api_key" toml:"api_key"`             // Encrypted in storage
	DefaultModel string  `json:"default_model" toml:"default_model"` // "qwen2.5:latest" or "gpt-4o-mini"
	Temperature  float64 `json:"temperature" toml:"temperature"`
	MaxTokens    int     `json:"max_tokens" toml:"max_tokens"` // required by anthropic
}

// ModelConfig pins models per module; empty entries use the provider default
type ModelConfig struct {
	Orchestrator string            `json:"orchestrator" toml:"orchestrator"`
	Specialists  map[string]string `json:"specialists" toml:"specialists"` // canonical name -> model
}

// KnowledgeConfig tunes the retrieval lookups
type KnowledgeConfig struct {
	TopK int `json:"top_k" toml:"top_k"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `json:"addr" toml:"addr"`
}

// AppConfig is the main application configuration
type AppConfig struct {
	Providers ProviderConfig  `json:"providers" toml:"providers"`
	Models    ModelConfig     `json:"models" toml:"models"`
	Knowledge KnowledgeConfig `json:"knowledge" toml:"knowledge"`
	Server    ServerConfig    `json:"server" toml:"server"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Providers: ProviderConfig{
			LLM: LLMProviderConfig{
				Mode:         "local",
				LocalURL:     "http://localhost:11434",
				DefaultModel: "qwen2.5:latest",
				Temperature:  0.3,
				MaxTokens:    2048,
			},
		},
		Models: ModelConfig{
			Specialists: map[string]string{},
		},
		Knowledge: KnowledgeConfig{
			TopK: 3,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
