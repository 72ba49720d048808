package ris

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	// DefaultBaseURL is the backend address used when WithBaseURL is not given.
	DefaultBaseURL = "http://localhost:8000"

	defaultVectorPath = "/search/vector"
	defaultHybridPath = "/search/hybrid"
	defaultUserAgent  = "risclient"
)

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	headers    http.Header
	userAgent  string

	vectorPath string
	hybridPath string

	embedder Embedder

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		baseURL:    DefaultBaseURL,
		headers:    http.Header{},
		userAgent:  defaultUserAgent,
		vectorPath: defaultVectorPath,
		hybridPath: defaultHybridPath,
	}
}

// WithBaseURL sets the backend address, e.g. "http://localhost:8000".
// A path component is kept as a prefix for every endpoint.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds every request. Zero disables the limit (default);
// context deadlines still apply.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return optionFunc(func(c *clientConfig) {
		c.headers.Add(key, value)
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithVectorPath overrides the single-vector search endpoint.
// Default: /search/vector.
func WithVectorPath(p string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorPath = p
	})
}

// WithHybridPath overrides the multi-vector search endpoint.
// Default: /search/hybrid.
func WithHybridPath(p string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hybridPath = p
	})
}

// WithEmbedder sets the query embedding provider.
// Required for Semantic search and HybridBuilder.Embed.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations,
// outbound HTTP requests) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
