// Package apperr provides coded domain errors shared by the catalog, sync and HTTP layers.
//
// Services return either one of the sentinels below or an *Error carrying a Code.
// Handlers map them to HTTP responses through Code.HTTPStatus:
//
//	var appErr *apperr.Error
//	if errors.As(err, &appErr) {
//	    c.JSON(appErr.Code.HTTPStatus(), appErr)
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation           Code = "VALIDATION"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeNotFound             Code = "NOT_FOUND"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"
	CodeSyncInProgress       Code = "SYNC_IN_PROGRESS"
	CodeInternal             Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code matching the error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAlreadyExists, CodeSyncInProgress, CodeConfirmationRequired:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrValidation           = errors.New("validation failed")
	ErrAlreadyExists        = errors.New("already exists")
	ErrNotFound             = errors.New("not found")
	ErrNotSignedIn          = errors.New("not signed in")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrSyncInProgress       = errors.New("sync in progress")

	// ErrSessionInvalidated means the remote credential could not be refreshed.
	// The caller must treat the session as signed out.
	ErrSessionInvalidated = errors.New("session invalidated")
)

// Error is a domain error with a code, a human-readable message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`

	sentinel error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match the sentinel the error was built from.
func (e *Error) Unwrap() error {
	return e.sentinel
}

// Validation builds a validation error with per-field details.
func Validation(message string, fields map[string]string) *Error {
	e := &Error{Code: CodeValidation, Message: message, sentinel: ErrValidation}
	if len(fields) > 0 {
		e.Details = fields
	}
	return e
}

// AlreadyExists builds a duplicate error.
func AlreadyExists(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...), sentinel: ErrAlreadyExists}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), sentinel: ErrNotFound}
}

// ConfirmationRequired reports that a delete needs the caller's confirmation
// because other records still reference the name.
func ConfirmationRequired(references int, format string, args ...any) *Error {
	return &Error{
		Code:     CodeConfirmationRequired,
		Message:  fmt.Sprintf(format, args...),
		Details:  map[string]int{"references": references},
		sentinel: ErrConfirmationRequired,
	}
}

// CodeOf returns the Code of err, falling back to sentinel matching and CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotSignedIn), errors.Is(err, ErrSessionInvalidated):
		return CodeUnauthorized
	case errors.Is(err, ErrConfirmationRequired):
		return CodeConfirmationRequired
	case errors.Is(err, ErrSyncInProgress):
		return CodeSyncInProgress
	default:
		return CodeInternal
	}
}
