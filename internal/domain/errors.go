package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
	// ErrJobNotFound signals an unknown ingest job id.
	ErrJobNotFound = fmt.Errorf("job %w", ErrNotFound)

	// ErrInvalidInput signals a caller error (empty query, empty document, bad parameters).
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyQuery signals an empty query text.
	ErrEmptyQuery = fmt.Errorf("%w: query text is required", ErrInvalidInput)
	// ErrEmptyDocument signals a document without content.
	ErrEmptyDocument = fmt.Errorf("%w: document content is required", ErrInvalidInput)
	// ErrUnsupportedMediaType signals a document type no extractor can read.
	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrInvalidInput)
	// ErrDocumentTooLarge signals a document above the configured size limit.
	ErrDocumentTooLarge = fmt.Errorf("%w: document too large", ErrInvalidInput)
	// ErrOwnerMismatch signals a document id that belongs to another owner.
	ErrOwnerMismatch = fmt.Errorf("%w: document belongs to another owner", ErrInvalidInput)

	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidVector signals a vector with non-finite components or zero length.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrDBUnavailable signals a storage engine that failed to open or answer.
	ErrDBUnavailable = errors.New("database unavailable")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrEmbeddingProviderError)
	// ErrUnsupportedModel signals a model the provider does not serve.
	ErrUnsupportedModel = errors.New("unsupported embedding model")
	// ErrNotImplemented signals that a stub provider is configured.
	ErrNotImplemented = errors.New("not implemented")

	// ErrQueueStopped signals an enqueue after the ingest queue was stopped.
	ErrQueueStopped = errors.New("ingest queue stopped")
	// ErrQueueFull signals that the ingest queue reached its capacity.
	ErrQueueFull = errors.New("ingest queue full")
)

// DimensionError describes a vector whose length differs from the configured dimension.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionError creates a dimension mismatch error.
func NewDimensionError(want, got int) error {
	return &DimensionError{Want: want, Got: got}
}
