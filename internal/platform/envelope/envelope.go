// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package envelope defines the uniform result returned by every service operation.

An [Envelope] carries a status code plus either a success payload or a
client-safe error message. Services never return bare errors for expected
failure modes; the transport layer only has to copy the envelope onto the wire.

# Rules

  - 2xx: Data is meaningful, Error is empty.
  - 4xx/5xx: Error is meaningful, Data is the zero value.
*/
package envelope

import (
	"net/http"

	"github.com/parley-chat/parley/internal/platform/apperr"
)

// Envelope is the {statusCode, data, error} result of a service call.
type Envelope[T any] struct {
	StatusCode int
	Data       T
	Error      string

	// Code is the machine-readable error code of a failed call.
	Code string

	// Cause is the underlying fault of a 5xx envelope. It is logged, never sent.
	Cause error
}

// Success wraps data with the given 2xx status.
func Success[T any](status int, data T) Envelope[T] {
	return Envelope[T]{StatusCode: status, Data: data}
}

// Failure converts err into an error envelope.
//
// An [apperr.AppError] keeps its status, code and message. Any other error is
// an internal fault and is reported as 500 with the fallback message.
func Failure[T any](err error, fallback string) Envelope[T] {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.InternalMessage(fallback, err)
	}
	return Envelope[T]{
		StatusCode: appError.HTTPStatus,
		Error:      appError.Message,
		Code:       appError.Code,
		Cause:      appError.Cause,
	}
}

// OK reports whether the envelope carries a 2xx status.
func (e Envelope[T]) OK() bool {
	return e.StatusCode >= http.StatusOK && e.StatusCode < http.StatusMultipleChoices
}
