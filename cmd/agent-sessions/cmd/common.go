package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ovachiever/agent-sessions/internal/config"
	"github.com/ovachiever/agent-sessions/internal/embed"
	"github.com/ovachiever/agent-sessions/internal/index"
	"github.com/ovachiever/agent-sessions/internal/providers"
	"github.com/ovachiever/agent-sessions/internal/readapi"
	"github.com/ovachiever/agent-sessions/internal/search"
	"github.com/ovachiever/agent-sessions/internal/store"
)

// resolveStorePath returns the --store flag value if set, otherwise the
// default store path (config.DefaultStorePath); cfg does not carry a store
// path of its own.
func resolveStorePath(cfg *config.Config) string {
	if storePath != "" {
		return storePath
	}
	return config.DefaultStorePath()
}

// openStore loads config from the current directory and opens the Store at
// its resolved path, applying the configured SQLite cache size.
func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		cfg = config.NewConfig()
	}

	path := resolveStorePath(cfg)
	scfg := store.DefaultConfig()
	scfg.SQLiteCacheMB = cfg.Performance.SQLiteCacheMB

	st, err := store.Open(path, scfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, cfg, nil
}

// newEmbedderFromConfig builds an Embedder from cfg, applying a short
// initialization timeout so a misconfigured remote provider doesn't hang a
// command indefinitely. A failure degrades to a nil embedder (lexical-only
// search) rather than aborting the command.
func newEmbedderFromConfig(ctx context.Context, cfg *config.Config) embed.Embedder {
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	embedder, err := embed.NewEmbedder(initCtx, provider, cfg.Embeddings.Model)
	if err != nil {
		return nil
	}
	return embedder
}

// buildRegistry returns the default provider registry, optionally narrowed
// to cfg.Providers.Enabled.
func buildRegistry(cfg *config.Config) *providers.Registry {
	full := providers.DefaultRegistry()
	if len(cfg.Providers.Enabled) == 0 {
		return full
	}

	narrowed := providers.NewRegistry()
	for _, name := range cfg.Providers.Enabled {
		if p, ok := full.Get(name); ok {
			narrowed.Register(p)
		}
	}
	return narrowed
}

// newReadAPI assembles the Read API facade for commands that need search
// or reindexing: a Search engine (nil embedder degrades it to
// lexical-only) and an Indexer, both built over the same Store.
// Commands that only list or read sessions can build a lighter
// readapi.API directly with just a Store.
func newReadAPI(st *store.Store, cfg *config.Config, embedder embed.Embedder) (*readapi.API, error) {
	weights := search.Weights{Lexical: cfg.Search.LexicalWeight, Semantic: cfg.Search.SemanticWeight}
	engine, err := search.New(search.Config{Store: st, Embedder: embedder, Weights: weights})
	if err != nil {
		return nil, fmt.Errorf("build search engine: %w", err)
	}

	ix := index.New(index.Config{Store: st, Registry: buildRegistry(cfg), Embedder: embedder})

	return readapi.New(readapi.Config{
		Store:                  st,
		Engine:                 engine,
		Indexer:                ix,
		ChildLinkWindowSeconds: int64(cfg.ChildLinkWindowDuration().Seconds()),
		CosineFloor:            cfg.Search.CosineFloor,
		CombinedFloor:          cfg.Search.CombinedFloor,
	}), nil
}
