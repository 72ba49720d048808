package ris

import (
	"fmt"
	"io"

	"github.com/kailas-cloud/risclient/internal/domain/analytics"
	"github.com/kailas-cloud/risclient/internal/domain/chat"
	"github.com/kailas-cloud/risclient/internal/domain/search/result"
)

// SearchResult is a single search hit. Payload is passed through as the
// backend returned it.
type SearchResult struct {
	Payload map[string]any
	Score   *float64 // nil when the backend sent no score
}

// TextSearchRequest is a free-text query. Nil TopK leaves the limit to the backend.
type TextSearchRequest struct {
	Query   string
	TopK    *int
	Filters map[string][]string
}

// ImageSearchRequest uploads an image. A nil File is refused with ErrNoImage.
type ImageSearchRequest struct {
	File     io.Reader
	Filename string
	TopK     *int
}

// VectorSearchRequest queries one named vector space.
type VectorSearchRequest struct {
	Vector     []float64
	VectorName string
	TopK       *int
	Filters    map[string][]string
}

// HybridSearchRequest queries several named vector spaces at once.
// Score fusion is done by the backend.
type HybridSearchRequest struct {
	Vectors map[string][]float64
	TopK    *int
	Filters map[string][]string
}

// SemanticSearchRequest embeds Query with the configured Embedder and runs
// a vector search against VectorName.
type SemanticSearchRequest struct {
	Query      string
	VectorName string
	TopK       *int
	Filters    map[string][]string
}

// ChatReply is the outcome of one chat turn.
type ChatReply struct {
	Reply   string   // empty when the backend sent none
	History []string // authoritative transcript
}

// ChatState is the turn state of a chat session.
type ChatState = chat.State

// Chat states.
const (
	ChatIdle             = chat.Idle
	ChatAwaitingResponse = chat.AwaitingResponse
)

// AnalyticsSummary holds aggregate catalogue statistics.
type AnalyticsSummary struct {
	TotalProducts int
	AveragePrice  *float64 // nil means no data, not zero
}

// FormatAveragePrice renders the average price, or "no data" when absent.
func (s AnalyticsSummary) FormatAveragePrice() string {
	return analytics.FormatAveragePrice(s.AveragePrice)
}

func (s AnalyticsSummary) String() string {
	return fmt.Sprintf("Total products: %d\nAverage price: %s", s.TotalProducts, s.FormatAveragePrice())
}

// HealthStatus is the backend health report.
type HealthStatus struct {
	Status string
}

// TopK returns a pointer to n for the optional TopK fields.
func TopK(n int) *int {
	return &n
}

func fromResults(list result.List) []SearchResult {
	out := make([]SearchResult, len(list))
	for i := range list {
		out[i] = SearchResult{Payload: list[i].Payload()}
		if v, ok := list[i].Score(); ok {
			out[i].Score = &v
		}
	}
	return out
}
