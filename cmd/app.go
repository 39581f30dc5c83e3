package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/document"
	"github.com/sells-group/legal-analyzer/internal/resilience"
	"github.com/sells-group/legal-analyzer/internal/store"
	"github.com/sells-group/legal-analyzer/internal/workflow"
	"github.com/sells-group/legal-analyzer/pkg/llm"
	"github.com/sells-group/legal-analyzer/pkg/vector"
)

// appEnv holds the initialized store, mirror and workflow collaborators
// shared by the analyze/retry/serve commands.
type appEnv struct {
	Store   *store.PostgresStore
	Mirror  *store.Mirror // nil when mirroring is disabled
	Docs    *document.Service
	Index   *vector.StoreIndex
	Tracker *workflow.Tracker
	Orch    *workflow.Orchestrator
}

// Close releases resources held by the environment.
func (ae *appEnv) Close() {
	if ae.Mirror != nil {
		_ = ae.Mirror.Close()
	}
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// noEmbedder forces the deterministic fallback vectors when no embedding
// provider is configured.
type noEmbedder struct{}

func (noEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, eris.New("no embedding provider configured")
}

// initStores opens the durable store, runs its migrations and opens the
// optional mirror. Callers should defer env.Close().
func initStores(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: int32(cfg.Store.MaxConns),
		MinConns: int32(cfg.Store.MinConns),
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{Store: st}
	if cfg.Mirror.Path != "" {
		mirror, merr := store.NewMirror(cfg.Mirror.Path)
		if merr != nil {
			// The mirror is best-effort end to end; run without it.
			zap.L().Warn("status mirror unavailable", zap.Error(merr))
		} else if merr = mirror.Migrate(ctx); merr != nil {
			zap.L().Warn("status mirror migration failed", zap.Error(merr))
			_ = mirror.Close()
		} else {
			env.Mirror = mirror
		}
	}
	return env, nil
}

// initApp builds the full workflow environment on top of initStores.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	env, err := initStores(ctx, mode)
	if err != nil {
		return nil, err
	}

	stageTimeout := time.Duration(cfg.Workflow.StageTimeoutSecs) * time.Second
	retry := resilience.FromRetryConfig(cfg.LLM.MaxAttempts, cfg.LLM.InitialBackoffMs, cfg.LLM.MaxBackoffMs, 2.0, 0.25)

	var providers []llm.Client
	var embedder llm.Embedder = noEmbedder{}
	for _, name := range cfg.LLM.Providers {
		switch name {
		case "anthropic":
			if cfg.Anthropic.Key != "" {
				providers = append(providers, llm.NewAnthropicClient(cfg.Anthropic.Key, cfg.Anthropic.Model))
			}
		case "openai":
			if cfg.OpenAI.Key != "" {
				client := llm.NewOpenAIClient(cfg.OpenAI.Key, cfg.OpenAI.Model, cfg.OpenAI.EmbeddingModel)
				providers = append(providers, client)
				embedder = client
			}
		}
	}

	breakerCfg := resilience.FromCircuitConfig(cfg.LLM.CircuitFailureThreshold, cfg.LLM.CircuitResetSecs)
	chain := llm.NewFallback(providers, cfg.LLM.RateLimitRPS, retry, llm.WithBreakerConfig(breakerCfg))
	svc := llm.NewService(chain, stageTimeout)

	env.Docs = document.NewService(env.Store)
	env.Index = vector.NewStoreIndex(env.Store, embedder, stageTimeout)

	var mirror workflow.StatusMirror
	if env.Mirror != nil {
		mirror = env.Mirror
	}
	env.Tracker = workflow.NewTracker(env.Store, mirror)
	env.Orch = workflow.New(svc, env.Index, env.Docs, env.Tracker)
	return env, nil
}
