package ragdex

import "github.com/kailas-cloud/ragdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrJobNotFound            = domain.ErrJobNotFound
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrEmptyDocument          = domain.ErrEmptyDocument
	ErrUnsupportedMediaType   = domain.ErrUnsupportedMediaType
	ErrDocumentTooLarge       = domain.ErrDocumentTooLarge
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrDBUnavailable          = domain.ErrDBUnavailable
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrUnsupportedModel       = domain.ErrUnsupportedModel
	ErrNotImplemented         = domain.ErrNotImplemented
	ErrQueueFull              = domain.ErrQueueFull
	ErrQueueStopped           = domain.ErrQueueStopped
)

// ErrorCode is the public class of a failure.
type ErrorCode string

// Error classes.
const (
	CodeInvalidInput     ErrorCode = ErrorCode(domain.CodeInvalidInput)
	CodeNotFound         ErrorCode = ErrorCode(domain.CodeNotFound)
	CodeDBUnavailable    ErrorCode = ErrorCode(domain.CodeDBUnavailable)
	CodeNetwork          ErrorCode = ErrorCode(domain.CodeNetwork)
	CodeUnsupportedModel ErrorCode = ErrorCode(domain.CodeUnsupportedModel)
	CodeNotImplemented   ErrorCode = ErrorCode(domain.CodeNotImplemented)
	CodeUnknown          ErrorCode = ErrorCode(domain.CodeUnknown)
)

// Error is a classified failure safe to show to end users.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// CodeOf classifies err.
func CodeOf(err error) ErrorCode {
	return ErrorCode(domain.CodeOf(err))
}

func toError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeOf(err), Message: domain.PublicMessage(err)}
}
