// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Wire Shape
//
// Every JSON body follows one of two envelopes:
//
//	{"data": ...}                      success
//	{"error": "...", "code": "..."}    failure
//
// Handlers that call a service copy its [envelope.Envelope] onto the wire with
// [Envelope]; middleware and decode failures use [Error] directly.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/envelope"
)

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Data interface{} `json:"data"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Envelope writes a service result. 5xx causes are logged with the request id.
func Envelope[T any](writer http.ResponseWriter, request *http.Request, result envelope.Envelope[T]) {
	if result.OK() {
		JSON(writer, result.StatusCode, SuccessEnvelope{Data: result.Data})
		return
	}

	if result.StatusCode >= http.StatusInternalServerError {
		logServerError(request, result.Code, result.Cause)
	}

	JSON(writer, result.StatusCode, ErrorEnvelope{Error: result.Error, Code: result.Code})
}

// Error converts any Go error into a standardized JSON API error response.
//
// Errors that are not an [apperr.AppError] are reported as a generic 500.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		logServerError(request, appError.Code, appError.Cause)
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}

func logServerError(request *http.Request, code string, cause error) {
	ctx := request.Context()
	ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_server_error",
		slog.String("code", code),
		slog.String("request_id", ctxutil.GetRequestID(ctx)),
		slog.Any("cause", cause),
	)
}
