package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimguard/internal/cache"
	"github.com/ppiankov/claimguard/internal/classifier"
	"github.com/ppiankov/claimguard/internal/llm"
	"github.com/ppiankov/claimguard/internal/logging"
	"github.com/ppiankov/claimguard/internal/memory"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/pipeline"
	"github.com/ppiankov/claimguard/internal/resilience"
	"github.com/ppiankov/claimguard/internal/store"
)

// app holds the wired components for one command invocation
type app struct {
	cfg      model.Config
	logger   *zap.Logger
	store    store.Store
	pipeline *pipeline.Pipeline
	closers  []io.Closer
}

// newApp loads configuration and wires the pipeline. The local index is
// rebuilt from confirmed fraud claims in the store before returning.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	clf, err := classifier.New(cfg.Classifier)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRetrieval(cfg.Retrieval),
		pipeline.WithClassifierGuard(resilience.NewGuard(resilience.Settings{
			Name:    model.DependencyClassifier,
			Timeout: cfg.Classifier.Timeout,
			Breaker: cfg.Classifier.Breaker,
		}, nil)),
	}

	memOpt, err := a.semanticMemory(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	if memOpt != nil {
		opts = append(opts, memOpt)
	}

	narrator, err := a.narrator()
	if err != nil {
		a.close()
		return nil, err
	}
	opts = append(opts, pipeline.WithNarrator(narrator))

	a.pipeline = pipeline.New(st, clf, opts...)

	n, err := a.pipeline.RebuildLocalIndex(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("rebuild knowledge index: %w", err)
	}
	logger.Debug("knowledge index ready", zap.Int("entries", n))

	return a, nil
}

// semanticMemory wires the Redis-backed memory when enabled. A memory that
// cannot be reached at startup is logged and skipped; retrieval then uses
// the local index only.
func (a *app) semanticMemory(ctx context.Context) (pipeline.Option, error) {
	mc := a.cfg.Memory
	if !mc.Enabled {
		return nil, nil
	}

	embedder, err := memory.NewOpenAIEmbedder(mc.APIKey, mc.BaseURL, mc.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	cached := memory.NewCachedEmbedder(embedder, cache.NewMemoryCache(mc.EmbeddingTTL, 2*mc.EmbeddingTTL), mc.EmbeddingModel)

	client := memory.NewRedisClient(mc.RedisAddr, mc.RedisPassword, mc.RedisDB)
	mem := memory.NewRedisMemory(client, cached, mc.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := mem.Ping(pingCtx); err != nil {
		a.logger.Warn("semantic memory unreachable, using local index only",
			zap.String("addr", mc.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil, nil
	}
	a.closers = append(a.closers, redisCloser{client})

	guard := resilience.NewGuard(resilience.Settings{
		Name:    model.DependencySemanticMemory,
		Timeout: mc.Timeout,
		Breaker: mc.Breaker,
	}, resilience.NewLimiter(mc.RateLimit, mc.Burst))

	return pipeline.WithSemanticMemory(mem, guard), nil
}

// narrator builds the narrative generator. With no provider configured
// every narrative comes from the template.
func (a *app) narrator() (*llm.Narrator, error) {
	lc := llm.ConfigFromModel(a.cfg.LLM)
	provider, err := llm.NewProvider(lc)
	if err != nil {
		return nil, fmt.Errorf("init narrative provider: %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	opts := []llm.NarratorOption{llm.WithNarratorLogger(a.logger)}
	if provider != nil {
		opts = append(opts, llm.WithNarratorGuard(resilience.NewGuard(resilience.Settings{
			Name:    model.DependencyNarrative,
			Timeout: time.Duration(a.cfg.LLM.Timeout) * time.Second,
			Breaker: model.DefaultBreaker(),
		}, nil)))
	}
	return llm.NewNarrator(provider, opts...), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

type redisCloser struct{ client *redis.Client }

func (r redisCloser) Close() error { return r.client.Close() }
