package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// ValidationError indicates malformed input, a missing field or an enum violation
type ValidationError struct {
	*DomainError
	Field string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		DomainError: &DomainError{Message: fmt.Sprintf("%s: %s", field, message)},
		Field:       field,
	}
}

// AuthError indicates a missing token or an actor/character mismatch without override
type AuthError struct {
	*DomainError
}

func NewAuthError(message string) *AuthError {
	return &AuthError{DomainError: &DomainError{Message: message}}
}

// NotFoundError indicates an absent entity
type NotFoundError struct {
	*DomainError
	Entity string
}

func NewNotFoundError(entity, message string) *NotFoundError {
	return &NotFoundError{
		DomainError: &DomainError{Message: message},
		Entity:      entity,
	}
}

// ConflictError indicates a failed state precondition: ship in transit, wrong
// sector, encounter already ended, insufficient resources
type ConflictError struct {
	*DomainError
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{DomainError: &DomainError{Message: message}}
}

// RateLimitError indicates the per-method window for a character is exhausted
type RateLimitError struct {
	*DomainError
	Method string
}

func NewRateLimitError(method string) *RateLimitError {
	return &RateLimitError{
		DomainError: &DomainError{Message: fmt.Sprintf("rate limit exceeded for %s", method)},
		Method:      method,
	}
}

// TransientError indicates a store or transport blip that may succeed on retry
type TransientError struct {
	*DomainError
	Cause error
}

func (e *TransientError) Unwrap() error { return e.Cause }

func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{
		DomainError: &DomainError{Message: message},
		Cause:       cause,
	}
}

// FatalError indicates a violated invariant; the request terminates
type FatalError struct {
	*DomainError
}

func NewFatalError(message string) *FatalError {
	return &FatalError{DomainError: &DomainError{Message: message}}
}

// IsConflict reports whether err is a state-precondition failure
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsNotFound reports whether err is an absent-entity failure
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// HTTPStatus maps an error to the status code of the response envelope
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		auth       *AuthError
		notFound   *NotFoundError
		conflict   *ConflictError
		rateLimit  *RateLimitError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &rateLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
