// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package requestutil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/platform/ctxutil"
	requestutil "github.com/parley-chat/parley/internal/platform/request"
	"github.com/parley-chat/parley/internal/platform/sec"
	"github.com/parley-chat/parley/internal/platform/validate"
)

func withParam(request *http.Request, name, value string) *http.Request {
	routeContext := chi.NewRouteContext()
	routeContext.URLParams.Add(name, value)
	return request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, routeContext))
}

func TestInt64Param(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"42", 42},
		{"-1", -1},
		{"abc", 0},
		{"", 0},
		{"1.5", 0},
	}

	for _, tt := range tests {
		request := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "uid", tt.raw)
		assert.Equal(t, tt.want, requestutil.Int64Param(request, "uid"), tt.raw)
	}
}

func TestQueryInt(t *testing.T) {
	assert.Equal(t, 5, requestutil.QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=5", nil), "limit", 20))
	assert.Equal(t, 20, requestutil.QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=ten", nil), "limit", 20))
	assert.Equal(t, 20, requestutil.QueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 20))
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Username string `json:"username"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"newUser"}`))
	require.NoError(t, requestutil.DecodeJSON(httptest.NewRecorder(), request, &target))
	assert.Equal(t, "newUser", target.Username)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	assert.ErrorIs(t, requestutil.DecodeJSON(httptest.NewRecorder(), request, &target), validate.ErrInvalidJSON)
}

func TestRequiredClaims(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := requestutil.RequiredClaims(request)
	assert.Error(t, err)

	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: 3, Username: "bob"}))
	claims, err := requestutil.RequiredClaims(request)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
}
