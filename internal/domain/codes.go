package domain

import "errors"

// Code is the public error class reported to callers.
type Code string

// Error classes.
const (
	CodeInvalidInput     Code = "invalid_input"
	CodeNotFound         Code = "not_found"
	CodeDBUnavailable    Code = "db_unavailable"
	CodeNetwork          Code = "network"
	CodeUnsupportedModel Code = "unsupported_model"
	CodeNotImplemented   Code = "not_implemented"
	CodeUnknown          Code = "unknown"
)

// CodeOf classifies err into a public error class.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrVectorDimMismatch),
		errors.Is(err, ErrInvalidVector):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDBUnavailable):
		return CodeDBUnavailable
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrUnsupportedModel):
		return CodeUnsupportedModel
	case errors.Is(err, ErrEmbeddingProviderError):
		return CodeNetwork
	default:
		return CodeUnknown
	}
}

// PublicMessage returns a message safe to show to callers.
// Storage and unclassified failures never expose driver details.
func PublicMessage(err error) string {
	switch CodeOf(err) {
	case "":
		return ""
	case CodeDBUnavailable:
		return "the document store is unavailable"
	case CodeUnknown:
		if errors.Is(err, ErrQueueStopped) || errors.Is(err, ErrQueueFull) {
			return err.Error()
		}
		return "internal error"
	case CodeNotImplemented:
		return "embeddings provider is not configured"
	default:
		return err.Error()
	}
}
