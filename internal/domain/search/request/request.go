package request

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"slices"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/risclient/internal/domain"
	"github.com/kailas-cloud/risclient/internal/domain/search/filter"
)

// ImageField is the multipart field name the backend reads the upload from.
const ImageField = "file"

// DefaultImageName is used when the caller provides no file name.
const DefaultImageName = "image"

// TextBody is the /search/text payload. TopK and Filters are omitted when unset.
type TextBody struct {
	Query   string              `json:"query"`
	TopK    *int                `json:"top_k,omitempty"`
	Filters map[string][]string `json:"filters,omitempty"`
}

// VectorBody is the single-vector search payload.
type VectorBody struct {
	Vector     []float64           `json:"vector"`
	VectorName string              `json:"vector_name"`
	TopK       *int                `json:"top_k,omitempty"`
	Filters    map[string][]string `json:"filters,omitempty"`
}

// HybridBody is the multi-vector search payload. Fusion is done by the backend.
type HybridBody struct {
	Vectors map[string][]float64 `json:"vectors"`
	TopK    *int                 `json:"top_k,omitempty"`
	Filters map[string][]string  `json:"filters,omitempty"`
}

// Image is a multipart image upload with top_k carried as a query parameter.
type Image struct {
	File        io.Reader
	Filename    string
	ContentType string
	Query       url.Values
}

// NewText builds a text search payload. An empty query is passed through unchanged.
func NewText(query string, topK *int, filters filter.Set) (TextBody, error) {
	k, err := checkTopK(topK)
	if err != nil {
		return TextBody{}, err
	}
	return TextBody{Query: query, TopK: k, Filters: filters.Wire()}, nil
}

// NewVector builds a single-vector payload. Dimensionality is left to the backend.
func NewVector(vector []float64, name string, topK *int, filters filter.Set) (VectorBody, error) {
	if len(vector) == 0 {
		return VectorBody{}, domain.ErrEmptyVector
	}
	k, err := checkTopK(topK)
	if err != nil {
		return VectorBody{}, err
	}
	return VectorBody{
		Vector:     slices.Clone(vector),
		VectorName: name,
		TopK:       k,
		Filters:    filters.Wire(),
	}, nil
}

// NewHybrid builds a multi-vector payload. At least one named vector is required.
func NewHybrid(vectors map[string][]float64, topK *int, filters filter.Set) (HybridBody, error) {
	if len(vectors) == 0 {
		return HybridBody{}, domain.ErrNoVectors
	}
	k, err := checkTopK(topK)
	if err != nil {
		return HybridBody{}, err
	}
	vs := make(map[string][]float64, len(vectors))
	for name, v := range vectors {
		vs[name] = slices.Clone(v)
	}
	return HybridBody{Vectors: vs, TopK: k, Filters: filters.Wire()}, nil
}

// NewImage prepares an image upload. A nil file, including a typed nil such as
// (*os.File)(nil), refuses construction with domain.ErrNoImage.
func NewImage(file io.Reader, filename string, topK *int) (Image, error) {
	if isNilReader(file) {
		return Image{}, domain.ErrNoImage
	}
	k, err := checkTopK(topK)
	if err != nil {
		return Image{}, err
	}
	if filename == "" {
		filename = DefaultImageName
	}

	img := Image{Filename: filename}
	if k != nil {
		img.Query, err = styleQuery("top_k", *k)
		if err != nil {
			return Image{}, err
		}
	}

	// Peek does not consume; the full stream is still uploaded.
	br := bufio.NewReaderSize(file, 512)
	head, _ := br.Peek(512)
	img.File = br
	img.ContentType = http.DetectContentType(head)
	return img, nil
}

func isNilReader(r io.Reader) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func checkTopK(topK *int) (*int, error) {
	if topK == nil {
		return nil, nil
	}
	if *topK <= 0 {
		return nil, fmt.Errorf("top_k=%d: %w", *topK, domain.ErrInvalidTopK)
	}
	k := *topK
	return &k, nil
}

// styleQuery renders a form-style query parameter the way generated OpenAPI clients do.
func styleQuery(name string, value any) (url.Values, error) {
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return nil, fmt.Errorf("style %s: %w", name, err)
	}
	q, err := url.ParseQuery(frag)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return q, nil
}
