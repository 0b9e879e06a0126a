package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aue-natural/pricewatch/internal/embed"
	"github.com/aue-natural/pricewatch/internal/engine"
	"github.com/aue-natural/pricewatch/internal/store"
	"github.com/aue-natural/pricewatch/pkg/jina"
)

// matchEnv holds the store, embedding cache and engine needed by the
// match/export/serve commands.
type matchEnv struct {
	Store      *store.SQLiteStore
	Embeddings *embed.Cache
	Engine     *engine.Engine
}

// Close releases resources held by the match environment.
func (me *matchEnv) Close() {
	if me.Embeddings != nil {
		_ = me.Embeddings.Flush()
	}
	if me.Store != nil {
		_ = me.Store.Close()
	}
}

// initMatchEnv opens the local store, builds the embeddings cache on top of
// it, and constructs the matching engine. Callers should defer env.Close().
func initMatchEnv(ctx context.Context) (*matchEnv, error) {
	if cfg.Jina.Key == "" {
		return nil, eris.New("PRICEWATCH_JINA_KEY is required for matching")
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithModel(cfg.Jina.Model),
		jina.WithRateLimit(cfg.Jina.RPS, cfg.Jina.Burst),
	)

	cache := embed.NewCache(jinaClient, st, cfg.Jina.Dimension)
	eng := engine.New(cfg.Matcher, cache, cfg.Engine.Workers)

	return &matchEnv{Store: st, Embeddings: cache, Engine: eng}, nil
}

// initStore opens the local store without any embedding client. Used by
// commands that only read persisted runs.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
