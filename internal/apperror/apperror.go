// Package apperror defines the error kinds surfaced to API clients.
// Every failure returned by a service is an *AppError (or wraps one); handlers map the kind to an
// HTTP status and a stable machine-readable string.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an application error.
type Kind int

const (
	// Unknown is for unspecified errors.
	Unknown Kind = iota
	// InvalidOperation covers self-targeting and malformed input.
	InvalidOperation
	// Unauthenticated means no valid session was presented.
	Unauthenticated
	// Forbidden means the caller is known but not allowed.
	Forbidden
	// NotFound means a referenced user, post or pending request is absent.
	NotFound
	// Conflict is a duplicate or contradictory state transition.
	Conflict
	// UpstreamFailure means the database or the media service failed.
	UpstreamFailure
)

var kindNames = map[Kind]string{
	Unknown:          "unknown",
	InvalidOperation: "invalid_operation",
	Unauthenticated:  "unauthenticated",
	Forbidden:        "forbidden",
	NotFound:         "not_found",
	Conflict:         "conflict",
	UpstreamFailure:  "upstream_failure",
}

// String returns the stable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// AppError is the error type returned by services.
type AppError struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never sent to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case InvalidOperation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case UpstreamFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error" example:"No pending request from this user"`
	Kind  string `json:"kind" example:"not_found"`
}

// ToResponse converts the error to its client representation.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Kind: e.Kind.String()}
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewInvalidOperation(message string) *AppError {
	return New(InvalidOperation, message, nil)
}

func NewUnauthenticated(message string) *AppError {
	return New(Unauthenticated, message, nil)
}

func NewForbidden(message string) *AppError {
	return New(Forbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewConflict(message string) *AppError {
	return New(Conflict, message, nil)
}

func NewUpstreamFailure(message string, err error) *AppError {
	return New(UpstreamFailure, message, err)
}

// From converts any error into an *AppError. Errors that are not already
// application errors become an Unknown error carrying the original cause.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(Unknown, "Internal server error", err)
}

// KindOf returns the kind of err, or Unknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
