package ris

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// SearchFunc is one search call, e.g. a closure over SearchService.Text.
type SearchFunc func(ctx context.Context) ([]SearchResult, error)

// ResultBoard holds the results of the most recent search. Each Run is tagged
// with an increasing sequence number; starting a Run cancels the previous one,
// and a response that arrives after a newer Run started is discarded with
// ErrStale. The zero value is ready to use.
type ResultBoard struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	results []SearchResult
}

// Run executes search and, if it is still the newest, stores its results.
//
// A failed search leaves the stored results unchanged and returns the error.
// ErrNoImage is treated as a no-op: the stored results are returned with a nil error.
func (b *ResultBoard) Run(ctx context.Context, search SearchFunc) ([]SearchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	b.seq++
	tag := b.seq
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	res, err := search(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if tag != b.seq {
		return nil, fmt.Errorf("search #%d: %w", tag, ErrStale)
	}
	b.cancel = nil

	if err != nil {
		if errors.Is(err, ErrNoImage) {
			return slices.Clone(b.results), nil
		}
		return nil, err
	}
	b.results = res
	return slices.Clone(res), nil
}

// Results returns the stored results.
func (b *ResultBoard) Results() []SearchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.results)
}

// Seq returns the tag of the newest search started so far.
func (b *ResultBoard) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}
