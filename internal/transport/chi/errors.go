package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

const (
	codeQueueFull    domain.Code = "queue_full"
	codeQueueStopped domain.Code = "queue_stopped"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// errorHandlers run before the generic code mapping.
var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, domain.CodeInvalidInput),
	sentinelHandler(domain.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, domain.CodeInvalidInput),
	sentinelHandler(domain.ErrQueueFull, http.StatusServiceUnavailable, codeQueueFull),
	sentinelHandler(domain.ErrQueueStopped, http.StatusServiceUnavailable, codeQueueStopped),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.Code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code domain.Code) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := domain.PublicMessage(err)
		if msg == "internal error" {
			msg = sentinel.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// statusFor maps an error class to an HTTP status.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeDBUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeNetwork, domain.CodeUnsupportedModel:
		return http.StatusBadGateway
	case domain.CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}

	code := domain.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.log(r).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
	writeError(w, status, code, domain.PublicMessage(err))
}
