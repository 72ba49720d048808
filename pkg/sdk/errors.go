package ris

import "github.com/kailas-cloud/risclient/internal/domain"

// Failure kinds re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNetwork      = domain.ErrNetwork
	ErrDecode       = domain.ErrDecode
	ErrServer       = domain.ErrServer
	ErrPrecondition = domain.ErrPrecondition
)

// Specific preconditions. All of them also match ErrPrecondition.
var (
	ErrNoImage      = domain.ErrNoImage
	ErrNoVectors    = domain.ErrNoVectors
	ErrEmptyVector  = domain.ErrEmptyVector
	ErrInvalidTopK  = domain.ErrInvalidTopK
	ErrTurnInFlight = domain.ErrTurnInFlight
	ErrNoEmbedder   = domain.ErrNoEmbedder
	ErrInvalidBody  = domain.ErrInvalidBody
)

// Other sentinel errors.
var (
	ErrStale                  = domain.ErrStale
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// TransportError is the single failure shape of a backend call.
type TransportError = domain.TransportError
