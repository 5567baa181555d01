// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package requestutil reads the inputs of account routes: JSON bodies, the {uid}
path parameter, query values and the caller's claims.

Parsing never fails loudly. A bad uid becomes 0 and a bad limit becomes the
fallback, so the service answers with its own messages.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/sec"
	"github.com/parley-chat/parley/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies. Public keys are the largest field.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns validate.ErrInvalidJSON if decoding fails.
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Int64Param parses a named URL parameter as a base-10 integer.

Anything that is not an integer yields 0, which account operations reject as
an invalid id.
*/
func Int64Param(request *http.Request, name string) int64 {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

/*
QueryInt parses a query string value, returning fallback when it is absent
or not an integer.
*/
func QueryInt(request *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(request.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return value
}

/*
RequiredClaims ensures the request is authenticated and returns the user claims.

Returns apperr.Unauthorized if the request is not authenticated.
*/
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}
