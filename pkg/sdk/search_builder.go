package ris

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/kailas-cloud/risclient/internal/domain/search/filter"
)

// HybridBuilder is a fluent builder for multi-vector queries.
type HybridBuilder struct {
	svc *SearchService

	vectors map[string][]float64
	texts   []namedText

	filters filter.Set
	topK    *int
}

type namedText struct {
	name, text string
}

// NewHybrid starts a hybrid query.
func (s *SearchService) NewHybrid() *HybridBuilder {
	return &HybridBuilder{svc: s, vectors: make(map[string][]float64)}
}

// With adds a raw vector for the named vector space.
func (b *HybridBuilder) With(name string, vector []float64) *HybridBuilder {
	b.vectors[name] = vector
	return b
}

// Embed adds text that is embedded at Do time and sent under name.
// An embedded entry replaces a raw vector with the same name.
func (b *HybridBuilder) Embed(name, text string) *HybridBuilder {
	b.texts = append(b.texts, namedText{name: name, text: text})
	return b
}

// Filter adds allowed values for a payload key.
func (b *HybridBuilder) Filter(key string, values ...string) *HybridBuilder {
	b.filters.Add(key, values...)
	return b
}

// TopK sets the maximum number of results. Unset leaves it to the backend.
func (b *HybridBuilder) TopK(n int) *HybridBuilder {
	b.topK = &n
	return b
}

// Do embeds pending texts and executes the search.
func (b *HybridBuilder) Do(ctx context.Context) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { b.svc.obs.observe("search.hybrid", start, err) }()

	vectors := make(map[string][]float64, len(b.vectors)+len(b.texts))
	maps.Copy(vectors, b.vectors)
	for _, t := range b.texts {
		vec, err := b.svc.embed(ctx, t.text)
		if err != nil {
			return nil, fmt.Errorf("hybrid search: embed %q: %w", t.name, err)
		}
		vectors[t.name] = vec
	}

	results, err = b.svc.hybrid(ctx, vectors, b.topK, b.filters)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return results, nil
}
