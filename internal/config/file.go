package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/manthysbr/vita/internal/core/domain"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "vita.toml"

// LoadFile decodes a TOML config over the defaults. found is false, with no
// error, when the file does not exist.
func LoadFile(path string) (cfg *domain.AppConfig, found bool, err error) {
	cfg = domain.DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, false, nil
		}
		return nil, false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// without overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides on cfg.
func ApplyEnv(cfg *domain.AppConfig) {
	llm := &cfg.Providers.LLM
	if v := os.Getenv("VITA_LLM_MODE"); v != "" {
		llm.Mode = v
	}
	if v := os.Getenv("VITA_LLM_MODEL"); v != "" {
		llm.DefaultModel = v
	}
	if v := os.Getenv("VITA_LLM_URL"); v != "" {
		llm.RemoteURL = v
	}
	if llm.APIKey == "" {
		switch strings.ToLower(llm.Mode) {
		case "openai", "remote":
			llm.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			llm.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if v := os.Getenv("VITA_ORCHESTRATOR_MODEL"); v != "" {
		cfg.Models.Orchestrator = v
	}
	if v, err := strconv.Atoi(os.Getenv("VITA_TOP_K")); err == nil && v > 0 {
		cfg.Knowledge.TopK = v
	}
	if v := os.Getenv("VITA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Resolve loads path (when present) and applies environment overrides.
func Resolve(path string) (*domain.AppConfig, bool, error) {
	cfg, found, err := LoadFile(path)
	if err != nil {
		return nil, false, err
	}
	ApplyEnv(cfg)
	return cfg, found, nil
}

// DBPath returns VITA_DB_PATH or ~/.vita/vita.db.
func DBPath() string {
	if v := os.Getenv("VITA_DB_PATH"); v != "" {
		return v
	}
	return filepath.Join(StateDir(), "vita.db")
}
