package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/vita/internal/adapters/duckdb"
	"github.com/manthysbr/vita/internal/core/domain"
)

// useTempState points every global flag at a scratch directory.
func useTempState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VITA_SECRET_KEY", "test-key-for-cli")

	prevDB, prevConfig, prevEnv := dbPath, configFile, envFile
	dbPath = filepath.Join(dir, "data", "vita.db")
	configFile = filepath.Join(dir, "vita.toml")
	envFile = filepath.Join(dir, ".env")
	t.Cleanup(func() {
		dbPath, configFile, envFile = prevDB, prevConfig, prevEnv
	})
	return dir
}

func TestIngestCmd(t *testing.T) {
	dir := useTempState(t)

	file := filepath.Join(dir, "nutrition.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(
		`{"title": "Oats", "content": "Rolled oats provide soluble fiber."}`+"\n"+
			`{"title": "Lentils", "content": "Lentils are rich in plant protein."}`+"\n",
	), 0644))

	ingestCollection = domain.CollectionNutrition
	var out bytes.Buffer
	ingestCmd.SetOut(&out)
	ingestCmd.SetContext(context.Background())
	require.NoError(t, ingestCmd.RunE(ingestCmd, []string{file}))
	assert.Contains(t, out.String(), "ingested 2 passage(s) into nutrition")

	repo, err := duckdb.NewRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	docs, err := repo.SearchDocs(context.Background(), domain.CollectionNutrition, "lentils protein", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Lentils", docs[0].Title)
}

func TestIngestCmd_UnknownCollection(t *testing.T) {
	useTempState(t)

	ingestCollection = "recipes"
	t.Cleanup(func() { ingestCollection = domain.CollectionNutrition })
	err := ingestCmd.RunE(ingestCmd, []string{"unused.jsonl"})
	assert.ErrorContains(t, err, `unknown collection "recipes"`)
}

func TestOpenStore_AppliesConfigFile(t *testing.T) {
	useTempState(t)

	require.NoError(t, os.WriteFile(configFile, []byte(`
[providers.llm]
mode = "local"
default_model = "llama3.1:8b"

[knowledge]
top_k = 7
`), 0644))

	repo, settings, err := openStore(context.Background(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer repo.Close()

	cfg := settings.GetConfig()
	assert.Equal(t, "llama3.1:8b", cfg.Providers.LLM.DefaultModel)
	assert.Equal(t, 7, cfg.Knowledge.TopK)
}

func TestNewLogger_Levels(t *testing.T) {
	prev := logLevel
	t.Cleanup(func() { logLevel = prev })

	logLevel = "debug"
	assert.True(t, newLogger().Enabled(context.Background(), slog.LevelDebug))

	logLevel = "warn"
	l := newLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))
}
