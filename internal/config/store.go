package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/manthysbr/vita/internal/core/domain"
)

const appConfigKey = "app_config"

// SettingsRepository is the minimal DB interface for settings persistence.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error
}

// OnChangeFunc is called when settings are updated.
type OnChangeFunc func(cfg *domain.AppConfig)

// SettingsStore manages persistent settings with encrypted secrets.
// The config is stored as one JSON document; the API key is encrypted at rest
// and masked on read.
type SettingsStore struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	secret   *SecretKey
	repo     SettingsRepository
	config   *domain.AppConfig
	onChange []OnChangeFunc
}

// NewSettingsStore loads the saved config, or persists seed (DefaultConfig when
// nil) when nothing has been saved yet.
func NewSettingsStore(logger *slog.Logger, repo SettingsRepository, secret *SecretKey, seed *domain.AppConfig) (*SettingsStore, error) {
	store := &SettingsStore{
		logger: logger,
		secret: secret,
		repo:   repo,
	}

	ctx := context.Background()
	cfg, err := store.loadFromDB(ctx)
	if err != nil {
		logger.Warn("no saved settings found, seeding", "error", err)
		if seed == nil {
			seed = domain.DefaultConfig()
		}
		cfg = cloneConfig(seed)
		if err := normalize(cfg); err != nil {
			return nil, fmt.Errorf("invalid seed config: %w", err)
		}
		if err := store.saveToDB(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	store.config = cfg
	return store, nil
}

// OnChange registers a callback for when settings are updated.
// Used by the kernel to hot-reload providers and model pins.
func (s *SettingsStore) OnChange(fn OnChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// GetConfig returns a copy of the current config with decrypted secrets.
func (s *SettingsStore) GetConfig() *domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.config)
}

// GetMaskedConfig returns config safe for API response (secrets masked).
func (s *SettingsStore) GetMaskedConfig() *domain.AppConfig {
	cp := s.GetConfig()
	cp.Providers.LLM.APIKey = MaskSecret(cp.Providers.LLM.APIKey)
	return cp
}

// UpdateConfig validates, encrypts secrets, persists, and triggers onChange callbacks.
// An empty or masked API key keeps the stored one.
func (s *SettingsStore) UpdateConfig(ctx context.Context, update *domain.AppConfig) error {
	update = cloneConfig(update)

	s.mu.Lock()
	if update.Providers.LLM.APIKey == "" || isMasked(update.Providers.LLM.APIKey) {
		update.Providers.LLM.APIKey = s.config.Providers.LLM.APIKey
	}
	if err := normalize(update); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.saveToDB(ctx, update); err != nil {
		s.mu.Unlock()
		return err
	}
	s.config = update
	callbacks := append([]OnChangeFunc(nil), s.onChange...)
	s.mu.Unlock()

	s.logger.Info("settings updated",
		"llm_mode", update.Providers.LLM.Mode,
		"default_model", update.Providers.LLM.DefaultModel,
		"pinned_specialists", len(update.Models.Specialists),
	)

	// Callbacks run unlocked so they may read the store.
	for _, fn := range callbacks {
		fn(cloneConfig(update))
	}
	return nil
}

// normalize fills defaults and rejects configs no provider could be built from.
func normalize(cfg *domain.AppConfig) error {
	llm := &cfg.Providers.LLM
	llm.Mode = strings.ToLower(strings.TrimSpace(llm.Mode))
	switch llm.Mode {
	case "":
		llm.Mode = "local"
	case "local", "ollama", "openai":
	case "remote":
		if llm.RemoteURL == "" {
			return fmt.Errorf("LLM remote_url is required when mode=remote")
		}
		if llm.APIKey == "" {
			return fmt.Errorf("LLM api_key is required when mode=remote")
		}
	case "anthropic":
		if llm.APIKey == "" {
			return fmt.Errorf("LLM api_key is required when mode=anthropic")
		}
	default:
		return fmt.Errorf("unsupported LLM mode %q", llm.Mode)
	}
	if llm.Temperature < 0 || llm.Temperature > 2 {
		return fmt.Errorf("LLM temperature must be within [0, 2], got %v", llm.Temperature)
	}

	if cfg.Knowledge.TopK <= 0 {
		cfg.Knowledge.TopK = domain.DefaultConfig().Knowledge.TopK
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = domain.DefaultConfig().Server.Addr
	}

	pins := make(map[string]string, len(cfg.Models.Specialists))
	for name, model := range cfg.Models.Specialists {
		canonical, ok := domain.LookupSpecialist(domain.NormalizeSpecialist(name))
		if !ok {
			return fmt.Errorf("%w: %q in models.specialists", domain.ErrUnknownSpecialist, name)
		}
		if model = strings.TrimSpace(model); model != "" {
			pins[string(canonical)] = model
		}
	}
	cfg.Models.Specialists = pins
	return nil
}

func cloneConfig(cfg *domain.AppConfig) *domain.AppConfig {
	cp := *cfg
	cp.Models.Specialists = make(map[string]string, len(cfg.Models.Specialists))
	for k, v := range cfg.Models.Specialists {
		cp.Models.Specialists[k] = v
	}
	return &cp
}

func (s *SettingsStore) loadFromDB(ctx context.Context) (*domain.AppConfig, error) {
	raw, err := s.repo.GetSetting(ctx, appConfigKey)
	if err != nil {
		return nil, err
	}

	var stored storedConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg := &domain.AppConfig{
		Providers: domain.ProviderConfig{
			LLM: domain.LLMProviderConfig{
				Mode:         stored.LLM.Mode,
				LocalURL:     stored.LLM.LocalURL,
				RemoteURL:    stored.LLM.RemoteURL,
				DefaultModel: stored.LLM.DefaultModel,
				Temperature:  stored.LLM.Temperature,
				MaxTokens:    stored.LLM.MaxTokens,
			},
		},
		Models:    stored.Models,
		Knowledge: stored.Knowledge,
		Server:    stored.Server,
	}
	if cfg.Models.Specialists == nil {
		cfg.Models.Specialists = map[string]string{}
	}

	if stored.LLM.EncryptedAPIKey != "" {
		key, err := s.secret.Decrypt(stored.LLM.EncryptedAPIKey)
		if err != nil {
			s.logger.Warn("failed to decrypt LLM API key", "error", err)
		} else {
			cfg.Providers.LLM.APIKey = key
		}
	}

	return cfg, nil
}

func (s *SettingsStore) saveToDB(ctx context.Context, cfg *domain.AppConfig) error {
	stored := storedConfig{
		LLM: storedProviderConfig{
			Mode:         cfg.Providers.LLM.Mode,
			LocalURL:     cfg.Providers.LLM.LocalURL,
			RemoteURL:    cfg.Providers.LLM.RemoteURL,
			DefaultModel: cfg.Providers.LLM.DefaultModel,
			Temperature:  cfg.Providers.LLM.Temperature,
			MaxTokens:    cfg.Providers.LLM.MaxTokens,
		},
		Models:    cfg.Models,
		Knowledge: cfg.Knowledge,
		Server:    cfg.Server,
	}

	if cfg.Providers.LLM.APIKey != "" {
		enc, err := s.secret.Encrypt(cfg.Providers.LLM.APIKey)
		if err != nil {
			return fmt.Errorf("encrypt LLM API key: %w", err)
		}
		stored.LLM.EncryptedAPIKey = enc
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return s.repo.SaveSetting(ctx, appConfigKey, string(raw))
}

// storedConfig is the DB representation with encrypted fields
type storedConfig struct {
	LLM       storedProviderConfig   `json:"llm"`
	Models    domain.ModelConfig     `json:"models"`
	Knowledge domain.KnowledgeConfig `json:"knowledge"`
	Server    domain.ServerConfig    `json:"server"`
}

type storedProviderConfig struct {
	Mode            string  `json:"mode"`
	LocalURL        string  `json:"local_url"`
	RemoteURL       string  `json:"remote_url"`
	EncryptedAPIKey string  `json:"encrypted_api_key,omitempty"`
	DefaultModel    string  `json:"default_model"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
}
