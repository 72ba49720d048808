package ris

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/risclient/internal/domain"
	"github.com/kailas-cloud/risclient/internal/domain/search/filter"
	"github.com/kailas-cloud/risclient/internal/domain/search/mode"
	"github.com/kailas-cloud/risclient/internal/domain/search/request"
	"github.com/kailas-cloud/risclient/internal/domain/search/result"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

// SearchService runs searches. Each call is one independent backend request.
type SearchService struct {
	transport  transport
	embedder   domain.Embedder
	vectorPath string
	hybridPath string
	obs        *observer
}

// Text runs a free-text search against /search/text.
func (s *SearchService) Text(ctx context.Context, req TextSearchRequest) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.text", start, err) }()

	body, err := request.NewText(req.Query, req.TopK, filter.FromMap(req.Filters))
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	results, err = s.do(ctx, rest.Request{Method: http.MethodPost, Path: mode.Text.Path(), JSON: body})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return results, nil
}

// Image uploads an image to /search/image. Without a file it returns
// ErrNoImage and makes no request.
func (s *SearchService) Image(ctx context.Context, req ImageSearchRequest) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.image", start, err) }()

	img, err := request.NewImage(req.File, req.Filename, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("image search: %w", err)
	}
	results, err = s.do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   mode.Image.Path(),
		Query:  img.Query,
		File: &rest.FilePart{
			Field:       request.ImageField,
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Body:        img.File,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("image search: %w", err)
	}
	return results, nil
}

// Vector searches one named vector space. The vector is sent verbatim;
// its dimensionality is checked by the backend only.
func (s *SearchService) Vector(ctx context.Context, req VectorSearchRequest) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.vector", start, err) }()

	results, err = s.vector(ctx, req.Vector, req.VectorName, req.TopK, filter.FromMap(req.Filters))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}

// Hybrid searches several named vector spaces at once. At least one vector is required.
func (s *SearchService) Hybrid(ctx context.Context, req HybridSearchRequest) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.hybrid", start, err) }()

	results, err = s.hybrid(ctx, req.Vectors, req.TopK, filter.FromMap(req.Filters))
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return results, nil
}

// Semantic embeds the query text and runs a vector search with it.
// Requires WithEmbedder, otherwise ErrNoEmbedder.
func (s *SearchService) Semantic(ctx context.Context, req SemanticSearchRequest) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.semantic", start, err) }()

	vec, err := s.embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	results, err = s.vector(ctx, vec, req.VectorName, req.TopK, filter.FromMap(req.Filters))
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return results, nil
}

func (s *SearchService) vector(
	ctx context.Context, vec []float64, name string, topK *int, filters filter.Set,
) ([]SearchResult, error) {
	body, err := request.NewVector(vec, name, topK, filters)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, rest.Request{Method: http.MethodPost, Path: s.vectorPath, JSON: body})
}

func (s *SearchService) hybrid(
	ctx context.Context, vectors map[string][]float64, topK *int, filters filter.Set,
) ([]SearchResult, error) {
	body, err := request.NewHybrid(vectors, topK, filters)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, rest.Request{Method: http.MethodPost, Path: s.hybridPath, JSON: body})
}

func (s *SearchService) embed(ctx context.Context, text string) ([]float64, error) {
	if s.embedder == nil {
		return nil, domain.ErrNoEmbedder
	}
	res, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Float64s(), nil
}

func (s *SearchService) do(ctx context.Context, req rest.Request) ([]SearchResult, error) {
	var list result.List
	if err := s.transport.Do(ctx, req, &list); err != nil {
		return nil, err
	}
	return fromResults(list), nil
}
