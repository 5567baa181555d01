// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package ctxutil stores and reads the per-request values set by middleware:
the correlation id, the request-scoped logger and the caller's token claims.

Keys are an unexported type so no other package can read or overwrite them
through [context.WithValue].
*/
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/parley-chat/parley/internal/platform/sec"
)

type key uint8

const (
	keyRequestID key = iota
	keyLogger
	keyClaims
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// # Request ID

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// GetRequestID returns the X-Request-ID of the request, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := value[string](ctx, keyRequestID)
	return id
}

// # Logger

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// GetLogger returns the request logger, or [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	return LoggerOr(ctx, slog.Default())
}

// LoggerOr returns the request logger, or fallback outside a request.
func LoggerOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := value[*slog.Logger](ctx, keyLogger); ok && logger != nil {
		return logger
	}
	return fallback
}

// # Caller

// WithAuthUser attaches verified token claims.
func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// GetAuthUser returns the caller's claims, or nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := value[*sec.AuthClaims](ctx, keyClaims)
	return claims
}

// GetUserID returns the caller's uid and whether the request is authenticated.
func GetUserID(ctx context.Context) (int64, bool) {
	if claims := GetAuthUser(ctx); claims != nil {
		return claims.UserID, true
	}
	return 0, false
}
