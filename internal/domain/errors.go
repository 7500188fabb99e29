package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidArgument signals a malformed request parameter or filter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProviderUnavailable signals an unreachable or misbehaving
	// embedding/reranking provider. Recovered by degrading, never retried inline.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrVectorDimMismatch signals a mismatch between provider output and the
	// configured index dimensionality. Configuration error class, fatal at startup.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrUnauthorized signals a missing or invalid API key.
	ErrUnauthorized = errors.New("unauthorized")
)
