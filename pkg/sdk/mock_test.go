package ris

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/kailas-cloud/risclient/internal/testutil/backend"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

// --- transport mock ---

type mockTransport struct {
	mu    sync.Mutex
	calls []rest.Request
	doFn  func(ctx context.Context, req rest.Request, out any) error
}

func (m *mockTransport) Do(ctx context.Context, req rest.Request, out any) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.doFn(ctx, req, out)
}

func (m *mockTransport) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// respond fills out the way the real transport would: through JSON.
func respond(out any, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// --- embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- helpers ---

func testClient(t transport, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	return wireClient(t, cfg, nil)
}

// newBackendClient starts a fake backend and a real client pointed at it.
func newBackendClient(t *testing.T, opts ...Option) (*Client, *backend.Server) {
	t.Helper()
	srv := backend.New(t)
	c, err := New(append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}
