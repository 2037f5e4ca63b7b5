package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoMaterialFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage keeps upstream details (hosts, SQL, prompt text) out of
// responses for server-side failures.
func publicErrorMessage(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	switch status {
	case http.StatusBadGateway:
		return "answer generation failed"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusGatewayTimeout:
		return "request timed out"
	default:
		return "internal error"
	}
}
