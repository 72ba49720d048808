package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error produced by the client matches exactly one of these via errors.Is.
var (
	// ErrNetwork signals a request that never reached the server or never came back.
	ErrNetwork = errors.New("network failure")
	// ErrDecode signals a response body that is not valid JSON or not the expected shape.
	ErrDecode = errors.New("decode failure")
	// ErrServer signals a non-success status returned by the backend.
	ErrServer = errors.New("server failure")
	// ErrPrecondition signals a request the client refused to build.
	ErrPrecondition = errors.New("client precondition")
)

// Client-side preconditions. No network call is made when one of these is returned.
var (
	ErrNoImage      = fmt.Errorf("no image file selected: %w", ErrPrecondition)
	ErrNoVectors    = fmt.Errorf("at least one named vector is required: %w", ErrPrecondition)
	ErrEmptyVector  = fmt.Errorf("vector must not be empty: %w", ErrPrecondition)
	ErrInvalidTopK  = fmt.Errorf("top_k must be positive: %w", ErrPrecondition)
	ErrTurnInFlight = fmt.Errorf("chat turn already in flight: %w", ErrPrecondition)
	ErrNoEmbedder   = fmt.Errorf("embedder not configured: %w", ErrPrecondition)
	ErrInvalidBody  = fmt.Errorf("request body cannot be encoded: %w", ErrPrecondition)
)

// ErrEmbeddingProviderError signals a query embedding provider failure.
var ErrEmbeddingProviderError = errors.New("embedding provider error")

// ErrStale is returned when a newer search superseded the one being resolved.
var ErrStale = errors.New("superseded by a newer search")

// Kind classifies a transport failure.
type Kind int

// Kind constants.
const (
	KindNetwork Kind = iota + 1
	KindDecode
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindDecode:
		return ErrDecode
	case KindServer:
		return ErrServer
	default:
		return nil
	}
}

// TransportError is the single failure shape of one request/response cycle.
type TransportError struct {
	Kind   Kind
	Method string
	Path   string
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-supplied error body, if any
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s failure", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches the kind sentinel (ErrNetwork, ErrDecode, ErrServer).
func (e *TransportError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewTransportError builds a TransportError of the given kind.
func NewTransportError(kind Kind, method, path string, err error) *TransportError {
	return &TransportError{Kind: kind, Method: method, Path: path, Err: err}
}
