package ris

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/risclient/internal/testutil/backend"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

func TestSearchService_Text_NoTopK(t *testing.T) {
	c, srv := newBackendClient(t)

	if _, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call, _ := srv.LastCall()
	if call.Method != http.MethodPost || call.Path != "/search/text" {
		t.Fatalf("request = %s %s, want POST /search/text", call.Method, call.Path)
	}
	if got := string(call.Body); got != `{"query":"shoes"}` {
		t.Errorf("body = %s, want {\"query\":\"shoes\"}", got)
	}
	if call.ContentType != "application/json" {
		t.Errorf("content type = %q", call.ContentType)
	}
}

func TestSearchService_Text_TopKAndFilters(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Text(context.Background(), TextSearchRequest{
		Query:   "shoes",
		TopK:    TopK(5),
		Filters: map[string][]string{"brand": {"acme", "acme", "zeta"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call, _ := srv.LastCall()
	want := `{"query":"shoes","top_k":5,"filters":{"brand":["acme","zeta"]}}`
	if string(call.Body) != want {
		t.Errorf("body = %s, want %s", call.Body, want)
	}
}

func TestSearchService_Text_EmptyQueryPassesThrough(t *testing.T) {
	c, srv := newBackendClient(t)

	if _, err := c.Search().Text(context.Background(), TextSearchRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, _ := srv.LastCall()
	if string(call.Body) != `{"query":""}` {
		t.Errorf("body = %s", call.Body)
	}
}

func TestSearchService_Text_Results(t *testing.T) {
	c, _ := newBackendClient(t)

	res, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len = %d, want 2", len(res))
	}
	// Порядок бэкенда сохраняется.
	if res[0].Payload["id"] != "p1" || res[1].Payload["id"] != "p2" {
		t.Errorf("order = %v, %v", res[0].Payload["id"], res[1].Payload["id"])
	}
	if res[0].Score == nil || *res[0].Score != 0.92 {
		t.Errorf("score[0] = %v, want 0.92", res[0].Score)
	}
	if res[1].Score != nil {
		t.Errorf("score[1] = %v, want nil", *res[1].Score)
	}
}

func TestSearchService_Text_NullBody(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.SetResults(nil)

	res, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "nothing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("len = %d, want 0", len(res))
	}
}

func TestSearchService_Text_InvalidTopK(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes", TopK: TopK(0)})
	if !errors.Is(err, ErrInvalidTopK) || !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrInvalidTopK, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_Image_NoFile(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Image(context.Background(), ImageSearchRequest{TopK: TopK(5)})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Error("ErrNoImage must match ErrPrecondition")
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_Image_TypedNilFile(t *testing.T) {
	c, srv := newBackendClient(t)

	var f *os.File
	_, err := c.Search().Image(context.Background(), ImageSearchRequest{File: f})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_Image_Multipart(t *testing.T) {
	c, srv := newBackendClient(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	res, err := c.Search().Image(context.Background(), ImageSearchRequest{
		File:     bytes.NewReader(png),
		Filename: "shoe.png",
		TopK:     TopK(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("len = %d, want 2", len(res))
	}

	call, _ := srv.LastCall()
	if call.Path != "/search/image" {
		t.Errorf("path = %q", call.Path)
	}
	if call.Query.Get("top_k") != "5" {
		t.Errorf("top_k = %q, want 5", call.Query.Get("top_k"))
	}

	mt, params, err := mime.ParseMediaType(call.ContentType)
	if err != nil || mt != "multipart/form-data" {
		t.Fatalf("content type = %q (%v)", call.ContentType, err)
	}
	mr := multipart.NewReader(bytes.NewReader(call.Body), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("next part: %v", err)
	}
	if part.FormName() != "file" || part.FileName() != "shoe.png" {
		t.Errorf("part = %q/%q, want file/shoe.png", part.FormName(), part.FileName())
	}
	if ct := part.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("part content type = %q, want image/png", ct)
	}
	data, _ := io.ReadAll(part)
	if !bytes.Equal(data, png) {
		t.Error("uploaded bytes differ from the file")
	}
	if _, err := mr.NextPart(); err != io.EOF {
		t.Error("expected exactly one part")
	}
}

func TestSearchService_Image_NoTopK(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Image(context.Background(), ImageSearchRequest{File: strings.NewReader("raw")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, _ := srv.LastCall()
	if len(call.Query) != 0 {
		t.Errorf("query = %v, want none", call.Query)
	}
}

func TestSearchService_Vector(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Vector(context.Background(), VectorSearchRequest{
		Vector:     []float64{0.1, 0.2},
		VectorName: "image",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, _ := srv.LastCall()
	if call.Path != "/search/vector" {
		t.Errorf("path = %q", call.Path)
	}
	if want := `{"vector":[0.1,0.2],"vector_name":"image"}`; string(call.Body) != want {
		t.Errorf("body = %s, want %s", call.Body, want)
	}
}

func TestSearchService_Vector_CustomPath(t *testing.T) {
	c, srv := newBackendClient(t, WithVectorPath("/search/hybrid"))

	_, err := c.Search().Vector(context.Background(), VectorSearchRequest{Vector: []float64{1}, VectorName: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := srv.CallCount(http.MethodPost, "/search/hybrid"); n != 1 {
		t.Errorf("calls to custom path = %d, want 1", n)
	}
}

func TestSearchService_Vector_Empty(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Vector(context.Background(), VectorSearchRequest{VectorName: "image"})
	if !errors.Is(err, ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_Hybrid(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Hybrid(context.Background(), HybridSearchRequest{
		Vectors: map[string][]float64{"image": {1, 2}, "text": {3}},
		TopK:    TopK(3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, _ := srv.LastCall()
	if call.Path != "/search/hybrid" {
		t.Errorf("path = %q", call.Path)
	}
	if want := `{"vectors":{"image":[1,2],"text":[3]},"top_k":3}`; string(call.Body) != want {
		t.Errorf("body = %s, want %s", call.Body, want)
	}
}

func TestSearchService_Hybrid_NoVectors(t *testing.T) {
	c, srv := newBackendClient(t)

	for _, vs := range []map[string][]float64{nil, {}} {
		_, err := c.Search().Hybrid(context.Background(), HybridSearchRequest{Vectors: vs})
		if !errors.Is(err, ErrNoVectors) {
			t.Fatalf("expected ErrNoVectors, got %v", err)
		}
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_ServerError(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/search/text", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteDetail(w, http.StatusInternalServerError, "index unavailable")
	})

	_, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes"})
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if te.Status != http.StatusInternalServerError || te.Detail != "index unavailable" {
		t.Errorf("status=%d detail=%q", te.Status, te.Detail)
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrDecode) {
		t.Error("server failure must match exactly one kind")
	}
}

func TestSearchService_DecodeError(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/search/text", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteJSON(w, http.StatusOK, map[string]string{"not": "a list"})
	})

	_, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes"})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestSearchService_Text_BarePayloads(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.SetResults([]map[string]any{
		{"product_name": "Vase"},
		{"product_name": "Lamp"},
	})

	results, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "decor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	for i, want := range []string{"Vase", "Lamp"} {
		if results[i].Payload["product_name"] != want {
			t.Errorf("results[%d] payload = %v", i, results[i].Payload)
		}
		if results[i].Score != nil {
			t.Errorf("results[%d] score = %v, want nil", i, *results[i].Score)
		}
	}
}

func TestSearchService_ItemWrongShape(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/search/text", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteJSON(w, http.StatusOK, []any{"vase", 3})
	})

	_, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "decor"})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestSearchService_NetworkError(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Close()

	_, err := c.Search().Text(context.Background(), TextSearchRequest{Query: "shoes"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestSearchService_Semantic_NoEmbedder(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().Semantic(context.Background(), SemanticSearchRequest{Query: "shoes", VectorName: "text"})
	if !errors.Is(err, ErrNoEmbedder) {
		t.Fatalf("expected ErrNoEmbedder, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestSearchService_Semantic(t *testing.T) {
	var embedded string
	emb := &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		embedded = text
		return EmbeddingResult{Embedding: []float32{0.5, -1}}, nil
	}}
	c, srv := newBackendClient(t, WithEmbedder(emb))

	_, err := c.Search().Semantic(context.Background(), SemanticSearchRequest{
		Query:      "red shoes",
		VectorName: "text",
		TopK:       TopK(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedded != "red shoes" {
		t.Errorf("embedded = %q", embedded)
	}

	call, _ := srv.LastCall()
	var body struct {
		Vector     []float64 `json:"vector"`
		VectorName string    `json:"vector_name"`
		TopK       int       `json:"top_k"`
	}
	if err := json.Unmarshal(call.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Vector) != 2 || body.Vector[0] != 0.5 || body.VectorName != "text" || body.TopK != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchService_Semantic_EmbedError(t *testing.T) {
	emb := &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{}, ErrEmbeddingProviderError
	}}
	c, srv := newBackendClient(t, WithEmbedder(emb))

	_, err := c.Search().Semantic(context.Background(), SemanticSearchRequest{Query: "q", VectorName: "text"})
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestHybridBuilder_Do(t *testing.T) {
	emb := &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{0.25}}, nil
	}}
	c, srv := newBackendClient(t, WithEmbedder(emb))

	_, err := c.Search().NewHybrid().
		With("image", []float64{1, 2}).
		Embed("text", "red running shoes").
		Filter("brand", "acme").
		TopK(10).
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call, _ := srv.LastCall()
	want := `{"vectors":{"image":[1,2],"text":[0.25]},"top_k":10,"filters":{"brand":["acme"]}}`
	if string(call.Body) != want {
		t.Errorf("body = %s, want %s", call.Body, want)
	}
}

func TestHybridBuilder_Empty(t *testing.T) {
	c, srv := newBackendClient(t)

	_, err := c.Search().NewHybrid().TopK(3).Do(context.Background())
	if !errors.Is(err, ErrNoVectors) {
		t.Fatalf("expected ErrNoVectors, got %v", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestHybridBuilder_EmbedWithoutEmbedder(t *testing.T) {
	mt := &mockTransport{doFn: func(_ context.Context, _ rest.Request, _ any) error {
		t.Fatal("transport must not be called")
		return nil
	}}
	c := testClient(mt)

	_, err := c.Search().NewHybrid().Embed("text", "shoes").Do(context.Background())
	if !errors.Is(err, ErrNoEmbedder) {
		t.Fatalf("expected ErrNoEmbedder, got %v", err)
	}
}
