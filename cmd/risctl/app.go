package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/risclient/internal/config"
	"github.com/kailas-cloud/risclient/internal/db"
	dbRedis "github.com/kailas-cloud/risclient/internal/db/redis"
	"github.com/kailas-cloud/risclient/internal/domain"
	logpkg "github.com/kailas-cloud/risclient/internal/logger"
	"github.com/kailas-cloud/risclient/internal/metrics"
	"github.com/kailas-cloud/risclient/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/risclient/internal/transport/openai"
	"github.com/kailas-cloud/risclient/internal/version"
	ris "github.com/kailas-cloud/risclient/pkg/sdk"
)

// runContext is bound into every command's Run method.
type runContext struct {
	ctx     context.Context
	globals *Globals
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// app is the composition root of one command invocation.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *ris.Client
	board   ris.ResultBoard
	reg     *prometheus.Registry
	closers []func()
}

func (rc *runContext) open() (*app, error) {
	cfg, err := rc.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(rc.globals.Env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, reg: prometheus.NewRegistry()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := metrics.RegisterEmbeddingMetrics(a.reg); err != nil {
		a.Close()
		return nil, err
	}

	opts := []ris.Option{
		ris.WithBaseURL(cfg.Backend.BaseURL),
		ris.WithTimeout(cfg.Backend.Timeout()),
		ris.WithUserAgent("risctl/" + version.Version),
		ris.WithLogger(logpkg.Slog(logger, "ris")),
		ris.WithPrometheus(a.reg),
	}
	for k, v := range cfg.Backend.Headers {
		if v != "" {
			opts = append(opts, ris.WithHeader(k, v))
		}
	}
	if cfg.Backend.VectorPath != "" {
		opts = append(opts, ris.WithVectorPath(cfg.Backend.VectorPath))
	}
	if cfg.Backend.HybridPath != "" {
		opts = append(opts, ris.WithHybridPath(cfg.Backend.HybridPath))
	}
	if cfg.Embedding.Enabled() {
		emb := a.buildEmbedder(rc.ctx)
		opts = append(opts, ris.WithEmbedder(queryEmbedder{inner: emb}))
	}

	a.client, err = ris.New(opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}

	logger.Debug("client ready",
		zap.String("version", version.Version),
		zap.String("env", rc.globals.Env),
		zap.String("base_url", cfg.Backend.BaseURL),
		zap.Bool("embedder", cfg.Embedding.Enabled()),
		zap.Bool("embedding_cache", cfg.Cache.Enabled()),
	)
	return a, nil
}

func (rc *runContext) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if rc.globals.Config != "" {
		cfg, err = config.LoadFile(rc.globals.Config)
	} else {
		cfg, err = config.Load(rc.globals.Env)
	}
	if err != nil {
		return config.Config{}, err
	}

	// флаги важнее файла
	if rc.globals.BaseURL != "" {
		cfg.Backend.BaseURL = rc.globals.BaseURL
	}
	if len(rc.globals.Header) > 0 {
		if cfg.Backend.Headers == nil {
			cfg.Backend.Headers = make(map[string]string, len(rc.globals.Header))
		}
		for k, v := range rc.globals.Header {
			cfg.Backend.Headers[k] = v
		}
	}
	if rc.globals.LogLevel != "" {
		cfg.Logging.Level = rc.globals.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Cached -> Instruction.
// An unreachable cache is logged and skipped.
func (a *app) buildEmbedder(ctx context.Context) domain.Embedder {
	ec := a.cfg.Embedding
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     a.logger,
	})

	if a.cfg.Cache.Enabled() {
		store, err := a.openCache(ctx)
		if err != nil {
			a.logger.Warn("embedding cache disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, store.Close)
			embedder = embcache.New(embedder, store, embcache.Options{
				Namespace: ec.Provider + ":" + ec.Model,
				TTL:       a.cfg.Cache.TTL(),
			}, metrics.EmbeddingCacheTotal, a.logger)
		}
	}

	// Instruction outermost: the cache key includes it.
	if ec.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}
	return embedder
}

func (a *app) openCache(ctx context.Context) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Cache.Addrs,
		Password: a.cfg.Cache.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect cache: %w", err)
	}
	timeout := time.Duration(a.cfg.Cache.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

// Close releases resources in reverse order and logs the request counters.
func (a *app) Close() {
	if a.client != nil {
		a.logMetrics()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) logMetrics() {
	if !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	families, err := a.reg.Gather()
	if err != nil {
		a.logger.Debug("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			fields := []zap.Field{zap.String("metric", mf.GetName()), zap.Float64("value", c.GetValue())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			a.logger.Debug("counter", fields...)
		}
	}
}

// search runs fn through the result board. A missing image is a no-op.
func (a *app) search(ctx context.Context, out io.Writer, fn ris.SearchFunc) error {
	var noImage bool
	results, err := a.board.Run(ctx, func(ctx context.Context) ([]ris.SearchResult, error) {
		res, err := fn(ctx)
		if errors.Is(err, ris.ErrNoImage) {
			noImage = true
		}
		return res, err
	})
	if err != nil {
		return err
	}
	if noImage {
		a.logger.Info("no image selected, nothing to search")
		return nil
	}
	return printResults(out, results)
}

// queryEmbedder adapts the internal embedder chain to the SDK contract.
type queryEmbedder struct {
	inner domain.Embedder
}

func (e queryEmbedder) Embed(ctx context.Context, text string) (ris.EmbeddingResult, error) {
	r, err := e.inner.Embed(ctx, text)
	if err != nil {
		return ris.EmbeddingResult{}, err
	}
	return ris.EmbeddingResult(r), nil
}
