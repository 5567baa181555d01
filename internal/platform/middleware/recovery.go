// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/respond"
)

// PanicRecovery turns a handler panic into a logged 500. The open transaction,
// if any, has already been rolled back by postgres.WithTx.
func PanicRecovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				ctx := request.Context()
				ctxutil.GetLogger(ctx).ErrorContext(ctx, "panic_recovered",
					slog.Any("error", recovered),
					slog.String("stack", string(debug.Stack())),
				)
				respond.Error(writer, request, apperr.Internal(nil))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}
