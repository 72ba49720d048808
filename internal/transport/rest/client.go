// Package rest performs single request/response cycles against the retrieval backend.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/risclient/internal/domain"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// Config holds the transport settings. It is fixed for the lifetime of a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration // per request, 0 = no limit beyond ctx
	Headers    http.Header
	UserAgent  string
	Logger     *zap.Logger
}

// FilePart is a single file field of a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Request describes one backend call. At most one of JSON and File is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	File   *FilePart
}

// validator is implemented by response types that check their own shape after decoding.
type validator interface {
	Validate() error
}

// Client is the transport adapter. It never retries and never caches.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	headers   http.Header
	userAgent string
	logger    *zap.Logger
}

// New creates a transport client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", base.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:      base,
		http:      hc,
		timeout:   cfg.Timeout,
		headers:   cfg.Headers.Clone(),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}, nil
}

// Do performs exactly one call and decodes a 2xx JSON body into out (if non-nil).
// Every failure of the call is a *domain.TransportError. A request that cannot be
// built is refused before sending with domain.ErrInvalidBody or domain.ErrPrecondition.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.NewTransportError(domain.KindNetwork, req.Method, req.Path, unwrapURLError(err))
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.TransportError{
			Kind:   domain.KindServer,
			Method: req.Method,
			Path:   req.Path,
			Status: resp.StatusCode,
			Detail: extractDetail(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewTransportError(domain.KindNetwork, req.Method, req.Path, fmt.Errorf("read body: %w", err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewTransportError(domain.KindDecode, req.Method, req.Path, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return domain.NewTransportError(domain.KindDecode, req.Method, req.Path, err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.File != nil:
		buf, ct, err := encodeMultipart(req.File)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.Path, domain.ErrInvalidBody, err)
		}
		body, contentType = buf, ct
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.Path, domain.ErrInvalidBody, err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w: %w", req.Method, req.Path, domain.ErrPrecondition, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	return httpReq, nil
}

func encodeMultipart(f *FilePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

// extractDetail pulls the "detail" field from a JSON error body (FastAPI error format).
// Falls back to the trimmed raw body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Detail) > 0 {
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil {
			return s
		}
		return string(parsed.Detail)
	}
	return strings.TrimSpace(string(body))
}

// unwrapURLError drops the *url.Error wrapper so callers see the cause, not the raw transport type.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
