package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoContentSelected    = errors.New("no content selected")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrMalformedOutput      = errors.New("malformed generation output")
	ErrUnrecognizedRoute    = errors.New("unrecognized route")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizAlreadySubmitted = errors.New("quiz already submitted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

const maxViolationPayloadRunes = 512

// SchemaViolationError keeps the parsed payload that failed validation so it
// can be logged or returned for diagnosis.
type SchemaViolationError struct {
	Reason  string
	Payload string
}

func (e *SchemaViolationError) Error() string {
	if e == nil {
		return ErrSchemaViolation.Error()
	}
	payload := e.Payload
	if runes := []rune(payload); len(runes) > maxViolationPayloadRunes {
		payload = string(runes[:maxViolationPayloadRunes]) + "..."
	}
	return fmt.Sprintf("%s: %s (payload=%s)", ErrSchemaViolation, e.Reason, payload)
}

func (e *SchemaViolationError) Unwrap() error {
	return ErrSchemaViolation
}

func NewSchemaViolation(reason, payload string) error {
	return &SchemaViolationError{Reason: reason, Payload: payload}
}
