// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package apperr is the client-safe error type shared by the account services
and the HTTP layer.

An [AppError] carries the HTTP status, a machine-readable code and the exact
message the client sees. Services return it for every expected failure
(bad input, missing account, wrong credentials). Any other error reaching the
transport is an internal fault and is answered with a generic message.

Codes:

  - BAD_REQUEST: 400
  - UNAUTHORIZED: 401
  - FORBIDDEN: 403
  - NOT_FOUND: 404
  - CONFLICT: 409
  - RATE_LIMITED: 429
  - INTERNAL_ERROR: 500
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is a failure that may be shown to the client as is.
//
// # Security
//
// Cause is for server-side logging only. Message must never embed it.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e that wraps cause for logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// New builds an [AppError] from its parts. Prefer the named constructors.
func New(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # 4xx

func BadRequest(msg string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, msg)
}

// NotFound reports a missing resource: NotFound("User") reads "User not found".
func NotFound(resource string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Unauthorized(msg string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, msg)
}

// Conflict reports a duplicate, typically a taken username.
func Conflict(msg string) *AppError {
	return New(http.StatusConflict, CodeConflict, msg)
}

func RateLimited(retryAfterSeconds int) *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// # 5xx

// Internal wraps an unexpected fault behind a generic client message.
func Internal(cause error) *AppError {
	return InternalMessage("An unexpected error occurred", cause)
}

// InternalMessage is [Internal] with an operation-specific client message,
// such as "Failed to delete user".
func InternalMessage(msg string, cause error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, msg).WithCause(cause)
}

// As extracts the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsNotFound reports whether err carries a 404 [AppError].
func IsNotFound(err error) bool {
	ae := As(err)
	return ae != nil && ae.HTTPStatus == http.StatusNotFound
}
