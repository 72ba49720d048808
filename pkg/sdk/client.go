package ris

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/risclient/internal/domain"
	"github.com/kailas-cloud/risclient/internal/metrics"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

// Внутренний интерфейс для подмены в тестах.
type transport interface {
	Do(ctx context.Context, req rest.Request, out any) error
}

// Client is the retrieval service SDK entry point. It is safe for concurrent use.
type Client struct {
	transport  transport
	embedder   domain.Embedder // nil when not configured
	vectorPath string
	hybridPath string
	obs        *observer

	chatOnce sync.Once
	chat     *ChatService
}

// New creates a Client. No network call is made.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	hc, err := instrumentHTTPClient(cfg.httpClient, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	t, err := rest.New(rest.Config{
		BaseURL:    cfg.baseURL,
		HTTPClient: hc,
		Timeout:    cfg.timeout,
		Headers:    cfg.headers,
		UserAgent:  cfg.userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("ris: %w", err)
	}

	return wireClient(t, cfg, obs), nil
}

func wireClient(t transport, cfg *clientConfig, obs *observer) *Client {
	c := &Client{
		transport:  t,
		vectorPath: cfg.vectorPath,
		hybridPath: cfg.hybridPath,
		obs:        obs,
	}
	if cfg.embedder != nil {
		c.embedder = &embedderAdapter{inner: cfg.embedder}
	}
	return c
}

// instrumentHTTPClient wraps the transport with request metrics. The caller's
// client is copied, never modified.
func instrumentHTTPClient(hc *http.Client, reg prometheus.Registerer) (*http.Client, error) {
	if reg == nil {
		return hc, nil
	}
	if err := metrics.RegisterHTTPClientMetrics(reg); err != nil {
		return nil, fmt.Errorf("ris: %w", err)
	}
	var cp http.Client
	if hc != nil {
		cp = *hc
	}
	cp.Transport = metrics.RoundTripper(cp.Transport)
	return &cp, nil
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return &SearchService{
		transport:  c.transport,
		embedder:   c.embedder,
		vectorPath: c.vectorPath,
		hybridPath: c.hybridPath,
		obs:        c.obs,
	}
}

// Chat returns the chat service. Sessions obtained from it are shared for
// the lifetime of the Client.
func (c *Client) Chat() *ChatService {
	c.chatOnce.Do(func() {
		c.chat = newChatService(c.transport, c.obs)
	})
	return c.chat
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
