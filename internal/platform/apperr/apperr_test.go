// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/platform/apperr"
)

/*
TestConstructors_StatusMapping checks every constructor against its HTTP status and code.
*/
func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperr.AppError
		status int
		code   string
	}{
		{"bad_request", apperr.BadRequest("x"), http.StatusBadRequest, "BAD_REQUEST"},
		{"not_found", apperr.NotFound("User"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", apperr.Unauthorized("x"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperr.Forbidden("x"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", apperr.Conflict("x"), http.StatusConflict, "CONFLICT"},
		{"rate_limited", apperr.RateLimited(3), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", apperr.Internal(errors.New("db down")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

/*
TestInternal_HidesCause verifies the client message never carries the cause text.
*/
func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation account does not exist")
	err := apperr.InternalMessage("Failed to create user", cause)

	assert.Equal(t, "Failed to create user", err.Error())
	assert.ErrorIs(t, err, cause)
}

/*
TestAs_TraversesWrapping verifies extraction through fmt wrapping.
*/
func TestAs_TraversesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("layer: %w", apperr.NotFound("User"))

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, "User not found", ae.Message)
	assert.True(t, apperr.IsNotFound(wrapped))

	assert.Nil(t, apperr.As(errors.New("plain")))
	assert.False(t, apperr.IsNotFound(errors.New("plain")))
}

/*
TestWithCause_LeavesOriginalUntouched verifies WithCause copies the error.
*/
func TestWithCause_LeavesOriginalUntouched(t *testing.T) {
	base := apperr.Conflict("Username already exists")
	cause := errors.New("duplicate key")

	wrapped := base.WithCause(cause)

	assert.Nil(t, base.Cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, apperr.CodeConflict, wrapped.Code)
	assert.Equal(t, http.StatusConflict, wrapped.HTTPStatus)
}
