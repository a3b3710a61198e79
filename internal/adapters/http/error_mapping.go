package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrQuizAlreadySubmitted):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrNoContentSelected):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrSchemaViolation),
		domain.IsKind(err, domain.ErrMalformedOutput),
		domain.IsKind(err, domain.ErrUnrecognizedRoute):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is a stable machine-readable name for the error class.
func errorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrQuizNotFound):
		return "quiz_not_found"
	case domain.IsKind(err, domain.ErrQuizAlreadySubmitted):
		return "quiz_already_submitted"
	case domain.IsKind(err, domain.ErrNoContentSelected):
		return "no_content_selected"
	case domain.IsKind(err, domain.ErrSchemaViolation):
		return "schema_violation"
	case domain.IsKind(err, domain.ErrMalformedOutput):
		return "malformed_output"
	case domain.IsKind(err, domain.ErrUnrecognizedRoute):
		return "unrecognized_route"
	case domain.IsKind(err, domain.ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
