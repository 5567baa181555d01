// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package middleware holds the http.Handler decorators shared by every route.

  - RequestID and StructuredLogger give each request a correlation id and a
    scoped slog logger.
  - RateLimiter, CORS and Authenticate decide whether a request gets in.
  - PanicRecovery keeps a handler bug from killing the process.

Handlers read what the chain attached through ctxutil.
*/
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/platform/constants"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
)

// RequestID propagates the client's X-Request-ID or assigns a UUIDv7, which
// sorts by time in the logs. The id is echoed in the response.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if requestID == "" {
				requestID = newRequestID()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// responseRecorder captures what the handler wrote for the access log.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (recorder *responseRecorder) WriteHeader(code int) {
	if !recorder.wroteHeader {
		recorder.status = code
		recorder.wroteHeader = true
	}
	recorder.ResponseWriter.WriteHeader(code)
}

func (recorder *responseRecorder) Write(body []byte) (int, error) {
	recorder.wroteHeader = true
	n, err := recorder.ResponseWriter.Write(body)
	recorder.bytes += n
	return n, err
}

// StructuredLogger stores a request-scoped logger in the context and writes
// one access line per request. 4xx log at warn, 5xx at error. The ip attribute
// is resolved through proxies.
func StructuredLogger(logger *slog.Logger, proxies TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", proxies.ClientIP(request)),
			)
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			recorder := &responseRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(recorder, request.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			requestLogger.Log(ctx, level, "http_request_finished",
				slog.Int("status", recorder.status),
				slog.Int("bytes", recorder.bytes),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			)
		})
	}
}
