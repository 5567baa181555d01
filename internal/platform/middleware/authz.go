// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/constants"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/respond"
	"github.com/parley-chat/parley/internal/platform/sec"
)

// TokenVerifier checks the signature and expiry of an access token.
//
// Defined here so tests can inject a stub instead of a real [sec.TokenService].
type TokenVerifier interface {
	Verify(tokenString string) (*sec.AuthClaims, error)
}

// RevocationChecker reports the instant before which a user's tokens are void.
type RevocationChecker interface {
	RevokedBefore(ctx context.Context, userID int64) (time.Time, bool, error)
}

// Authenticate extracts and verifies the bearer token from the Authorization header.
//
// # Flow
//  1. No header: the request proceeds as anonymous.
//  2. Malformed header or token: 400 "Invalid token".
//  3. Expired token, or one issued strictly before the user's revocation mark: 401.
//  4. Otherwise [*sec.AuthClaims] is injected into the request context and the
//     request logger gains a user_id attribute.
func Authenticate(verifier TokenVerifier, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenString) == "" {
				respond.Error(writer, request, apperr.BadRequest("Invalid token"))
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(tokenString))
			if err == nil {
				err = checkRevocation(request.Context(), revocations, claims)
			}

			switch {
			case err == nil:
			case errors.Is(err, sec.ErrTokenExpired):
				respond.Error(writer, request, apperr.Unauthorized("Token expired"))
				return
			case errors.Is(err, sec.ErrTokenRevoked):
				respond.Error(writer, request, apperr.Unauthorized("Token revoked"))
				return
			case errors.Is(err, sec.ErrTokenInvalid):
				respond.Error(writer, request, apperr.BadRequest("Invalid token"))
				return
			default:
				respond.Error(writer, request, apperr.Internal(err))
				return
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.Int64("user_id", claims.UserID)))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func checkRevocation(ctx context.Context, revocations RevocationChecker, claims *sec.AuthClaims) error {
	if revocations == nil {
		return nil
	}

	mark, ok, err := revocations.RevokedBefore(ctx, claims.UserID)
	if err != nil || !ok {
		return err
	}

	issued := claims.IssuedAtTime()
	if issued.IsZero() || issued.Before(mark) {
		return sec.ErrTokenRevoked
	}
	return nil
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
