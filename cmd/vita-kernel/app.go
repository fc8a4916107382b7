package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/manthysbr/vita/internal/adapters/duckdb"
	"github.com/manthysbr/vita/internal/adapters/providers"
	appconfig "github.com/manthysbr/vita/internal/config"
	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/services"
)

// app holds the wired services shared by every subcommand.
type app struct {
	logger    *slog.Logger
	repo      *duckdb.Repository
	settings  *appconfig.SettingsStore
	router    *services.ModelRouter
	knowledge *duckdb.KnowledgeBase
	runner    *services.SpecialistRunner
	tracer    *services.TraceCollector
	coach     *services.CoachService
}

// openStore opens the database and the settings store layered on it.
// The TOML file and environment, when present, override what was saved.
func openStore(ctx context.Context, logger *slog.Logger) (*duckdb.Repository, *appconfig.SettingsStore, error) {
	if err := appconfig.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	path := dbPath
	if path == "" {
		path = appconfig.DBPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := duckdb.NewRepository(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init repository: %w", err)
	}

	secretKey, err := appconfig.NewSecretKey()
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("failed to init secret key: %w", err)
	}

	seed, found, err := appconfig.Resolve(configFile)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	settings, err := appconfig.NewSettingsStore(logger, repo, secretKey, seed)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("failed to init settings store: %w", err)
	}

	current := seed
	if !found {
		current = settings.GetConfig()
		appconfig.ApplyEnv(current)
	}
	if err := settings.UpdateConfig(ctx, current); err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("storage ready", "db", path, "config_file", configFile, "config_found", found)
	return repo, settings, nil
}

// buildApp wires the full Head Coach stack and registers hot-reload of the
// provider, model pins and retrieval depth.
func buildApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	repo, settings, err := openStore(ctx, logger)
	if err != nil {
		return nil, err
	}

	cfg := settings.GetConfig()
	provider, err := providers.Build(cfg)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to build LLM provider: %w", err)
	}

	router := services.NewModelRouter(logger, provider)
	router.ApplyConfig(cfg)

	knowledge := duckdb.NewKnowledgeBase(repo, cfg.Knowledge.TopK)
	runner := services.NewSpecialistRunner(logger, router)
	tracer := services.NewTraceCollector(logger, repo)

	dispatcher := services.NewActionDispatcher(logger, runner,
		knowledge.Collection(domain.CollectionNutrition),
		knowledge.Collection(domain.CollectionResearch),
		tracer,
	)
	orchestrator := services.NewOrchestrator(logger, router.For(domain.OrchestratorModule), dispatcher, tracer)
	coach := services.NewCoachService(logger, orchestrator, repo, tracer)

	settings.OnChange(func(cfg *domain.AppConfig) {
		newProvider, err := providers.Build(cfg)
		if err != nil {
			logger.Error("failed to rebuild LLM provider, keeping previous", "error", err)
		} else {
			router.UpdateProvider(newProvider)
		}
		router.ApplyConfig(cfg)
		knowledge.SetTopK(cfg.Knowledge.TopK)
		logger.Info("configuration reloaded",
			"mode", cfg.Providers.LLM.Mode,
			"model", cfg.Providers.LLM.DefaultModel,
			"top_k", cfg.Knowledge.TopK,
		)
	})

	logger.Info("coach ready",
		"mode", cfg.Providers.LLM.Mode,
		"model", cfg.Providers.LLM.DefaultModel,
		"orchestrator_model", router.ResolveModel(domain.OrchestratorModule),
	)

	return &app{
		logger:    logger,
		repo:      repo,
		settings:  settings,
		router:    router,
		knowledge: knowledge,
		runner:    runner,
		tracer:    tracer,
		coach:     coach,
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}
