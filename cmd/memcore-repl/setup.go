package main

import (
	"context"
	"fmt"

	"github.com/personamind/memcore/pkg/config"
	"github.com/personamind/memcore/pkg/embedding"
	embmock "github.com/personamind/memcore/pkg/embedding/adapters/mock"
	"github.com/personamind/memcore/pkg/embedding/adapters/openai"
	"github.com/personamind/memcore/pkg/lifecycle"
	"github.com/personamind/memcore/pkg/memory/store"
	"github.com/personamind/memcore/pkg/memory/store/adapters/boltdb"
	"github.com/personamind/memcore/pkg/memory/store/adapters/chromem"
	storemock "github.com/personamind/memcore/pkg/memory/store/adapters/mock"
	"github.com/personamind/memcore/pkg/memory/store/adapters/postgres"
	"github.com/personamind/memcore/pkg/memory/store/adapters/sqlite"
	"github.com/personamind/memcore/pkg/scripting"
)

// buildManager wires the store, provider, and optional Lua engine from
// configuration into a lifecycle manager.
func buildManager(ctx context.Context, cfg *config.Config) (*lifecycle.Manager, store.Store, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := buildStore(ctx, cfg, provider)
	if err != nil {
		return nil, nil, err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	manager, err := lifecycle.NewManager(s, provider, engine, lifecycle.Config{
		TopK:             cfg.Retrieval.TopK,
		ImportanceWeight: cfg.Retrieval.ImportanceWeight,
	})
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return manager, s, nil
}

func buildProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewAdapter(openai.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: cfg.Embedding.OpenAI.Dimensions,
		})
	case "mock":
		return embmock.NewProvider(embmock.WithDimensions(cfg.Embedding.OpenAI.Dimensions)), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, provider embedding.Provider) (store.Store, error) {
	switch cfg.Store.Type {
	case "postgres", "pgvector":
		return postgres.NewStore(ctx, postgres.Config{
			DSN:           cfg.Store.Postgres.DSN,
			DimensionSize: cfg.Embedding.OpenAI.Dimensions,
		})
	case "sqlite":
		return sqlite.Open(cfg.Store.SQLite.Path)
	case "boltdb":
		return boltdb.Open(cfg.Store.Bolt.Path)
	case "chromem":
		return chromem.NewStore(chromem.Config{
			Path:     cfg.Store.Chromem.Path,
			Provider: provider,
		})
	case "mock":
		return storemock.NewMockStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}

// buildEngine returns nil when no script paths are configured; the
// lifecycle manager treats a nil engine as hooks disabled.
func buildEngine(cfg *config.Config) (scripting.Engine, error) {
	if len(cfg.Scripting.Paths) == 0 {
		return nil, nil
	}

	engine, err := scripting.NewLuaEngine(scripting.DefaultConfig())
	if err != nil {
		return nil, err
	}
	for _, dir := range cfg.Scripting.Paths {
		if err := engine.LoadScriptDir(dir); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to load scripts from %s: %w", dir, err)
		}
	}
	return engine, nil
}
