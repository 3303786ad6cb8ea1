// Package errors defines the error kinds shared by services and their
// mapping onto HTTP status codes and envelope codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Wrap them with %w or embed them in an AppError.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrServiceUnavail = errors.New("service unavailable")
)

type kind struct {
	sentinel error
	code     string
	status   int
	// message is shown to clients when the error is not an AppError.
	// Empty means the error text itself is safe to show.
	message string
}

// kinds is checked in order; the first sentinel found in the chain wins.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict, "resource already exists"},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "authentication required"},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden, "access denied"},
	{ErrConflict, "CONFLICT", http.StatusConflict, "request conflicts with current state"},
	{ErrGone, "GONE", http.StatusGone, "resource no longer available"},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service temporarily unavailable"},
	{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"},
}

var internalKind = kinds[len(kinds)-1]

// AppError carries a client-facing code and message alongside the cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	k := lookup(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing resource by type and id (404).
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists reports a uniqueness violation (409).
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

// InvalidInput reports a request the caller must fix (400).
func InvalidInput(message string) *AppError { return newAppError(ErrInvalidInput, message) }

// Unauthorized reports missing or bad credentials (401).
func Unauthorized(message string) *AppError { return newAppError(ErrUnauthorized, message) }

// Forbidden reports an authenticated caller acting outside its rights (403).
func Forbidden(message string) *AppError { return newAppError(ErrForbidden, message) }

// Conflict reports a state conflict (409).
func Conflict(message string) *AppError { return newAppError(ErrConflict, message) }

// Gone reports a resource that existed but was removed (410).
func Gone(message string) *AppError { return newAppError(ErrGone, message) }

// ServiceUnavailable reports a dependency outage (503).
func ServiceUnavailable(message string) *AppError { return newAppError(ErrServiceUnavail, message) }

// Internal hides err behind a generic 500 message.
func Internal(err error) *AppError {
	return &AppError{
		Code:    internalKind.code,
		Message: internalKind.message,
		Status:  internalKind.status,
		Err:     err,
	}
}

// Wrap annotates err with message, keeping it matchable with errors.Is.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the status code err maps to, 500 when unrecognized.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}

// Describe returns the status, envelope code and client-safe message for
// err. AppErrors speak for themselves; wrapped sentinels get their kind's
// generic message, except invalid input whose text is returned as is.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	k := lookup(err)
	message = k.message
	if message == "" {
		message = err.Error()
	}
	return k.status, k.code, message
}

func lookup(err error) kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return internalKind
}
