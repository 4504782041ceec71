package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Eligibility decisions that reject a submission. CategoryLimitReached and
// TypeLimitReached are hard caps: the same input can never succeed, but a
// smaller hour amount may. ExternalRatioViolation is a portfolio-level
// constraint that resolves once enough external hours are accrued.
var (
	ErrInvalidCategoryOrType = New("INVALID_CATEGORY_OR_TYPE", http.StatusUnprocessableEntity, "category or activity type not found in the rule catalog")
	ErrInvalidHours          = New("INVALID_HOURS", http.StatusUnprocessableEntity, "hours must be a positive number")
	ErrCategoryLimitReached  = New("CATEGORY_LIMIT_REACHED", http.StatusUnprocessableEntity, "category hour limit already reached")
	ErrTypeLimitReached      = New("TYPE_LIMIT_REACHED", http.StatusUnprocessableEntity, "activity type hour limit already reached")
	ErrNoCreditableRoom      = New("TYPE_OR_CATEGORY_LIMIT_REACHED", http.StatusUnprocessableEntity, "remaining room is below one whole hour")
	ErrExternalRatioViolated = New("EXTERNAL_RATIO_VIOLATION", http.StatusUnprocessableEntity, "external activities must cover the minimum share of total hours")
)

// Infrastructure failures. Retryable; the evaluator fails closed on them
// rather than assuming an empty ledger or catalog.
var (
	ErrLookupFailure      = New("LOOKUP_FAILURE", http.StatusServiceUnavailable, "failed to load required data")
	ErrPersistenceFailure = New("PERSISTENCE_FAILURE", http.StatusServiceUnavailable, "failed to persist data")
)

// Common transport errors.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
