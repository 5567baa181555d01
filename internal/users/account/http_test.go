// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/postgres"
	"github.com/parley-chat/parley/internal/platform/sec"
	"github.com/parley-chat/parley/pkg/pointer"
)

type revocation struct {
	uid int64
	at  time.Time
	ttl time.Duration
}

type recordingRevoker struct {
	calls []revocation
	err   error
}

func (revoker *recordingRevoker) Revoke(_ context.Context, uid int64, at time.Time, ttl time.Duration) error {
	revoker.calls = append(revoker.calls, revocation{uid: uid, at: at, ttl: ttl})
	return revoker.err
}

type httpFixture struct {
	*serviceFixture
	mock    pgxmock.PgxPoolIface
	revoker *recordingRevoker
	handler *Handler
	now     time.Time
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	base := newServiceFixture(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	revoker := &recordingRevoker{}
	handler := NewHandler(base.service, mock, func(postgres.Querier) Stores {
		return base.store.stores()
	}, revoker, time.Hour)

	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	handler.now = func() time.Time { return now }

	return &httpFixture{serviceFixture: base, mock: mock, revoker: revoker, handler: handler, now: now}
}

// serve runs one request; a nil caller means an anonymous request.
func (f *httpFixture) serve(method, path, body string, caller *sec.AuthClaims) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if caller != nil {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), caller))
	}
	recorder := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(recorder, request)
	return recorder
}

func (f *httpFixture) expectTx(access pgx.TxAccessMode, commit bool) {
	f.mock.ExpectBeginTx(pgx.TxOptions{AccessMode: access})
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

func caller(uid int64, username string) *sec.AuthClaims {
	return &sec.AuthClaims{UserID: uid, Username: username}
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHandler_Create(t *testing.T) {
	f := newHTTPFixture(t)
	f.expectTx(pgx.ReadWrite, true)

	recorder := f.serve(http.MethodPost, "/", `{"username":"newUser","password":"hunter22","displayName":"New User","fullNameSearch":true}`, nil)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, "newUser", data["username"])
	assert.Equal(t, "New User", data["display_name"])
	assert.Equal(t, true, data["full_name_search"])
	assert.NotContains(t, recorder.Body.String(), "password")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// TestHandler_CreateRollsBack verifies a failed envelope never commits.
func TestHandler_CreateRollsBack(t *testing.T) {
	f := newHTTPFixture(t)
	f.expectTx(pgx.ReadWrite, false)

	recorder := f.serve(http.MethodPost, "/", `{"username":"ab","password":"pw"}`, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, "BAD_REQUEST", body["code"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_CreateInvalidJSON(t *testing.T) {
	f := newHTTPFixture(t)

	recorder := f.serve(http.MethodPost, "/", `{"username":`, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, "Invalid JSON payload", body["error"])
	assert.Equal(t, "BAD_REQUEST", body["code"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Login(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadOnly, true)
	recorder := f.serve(http.MethodPost, "/login", `{"username":"alice","password":"pw"}`, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, float64(uid), data["uid"])
	token, _ := data["token"].(string)
	claims, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)

	f.expectTx(pgx.ReadOnly, false)
	recorder = f.serve(http.MethodPost, "/login", `{"username":"alice","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid username or password", decode(t, recorder)["error"])

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_RequiresAuth(t *testing.T) {
	f := newHTTPFixture(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/search?query=a"},
		{http.MethodGet, "/1"},
		{http.MethodPut, "/1"},
		{http.MethodDelete, "/1"},
		{http.MethodPut, "/1/password"},
		{http.MethodPut, "/1/public-key"},
		{http.MethodPost, "/1/verify-password"},
	} {
		recorder := f.serve(route.method, route.path, `{}`, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, route.method+" "+route.path)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Get(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadOnly, true)
	recorder := f.serve(http.MethodGet, "/1", "", caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "alice", decode(t, recorder)["data"].(map[string]any)["username"])

	f.expectTx(pgx.ReadOnly, false)
	recorder = f.serve(http.MethodGet, "/abc", "", caller(uid, "alice"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Invalid user ID", decode(t, recorder)["error"])

	f.expectTx(pgx.ReadOnly, false)
	recorder = f.serve(http.MethodGet, "/42", "", caller(uid, "alice"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Search(t *testing.T) {
	f := newHTTPFixture(t)
	f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadOnly, true)
	recorder := f.serve(http.MethodGet, "/search?query=ali&limit=-5", "", caller(1, "alice"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decode(t, recorder)["data"], 1)
	assert.Equal(t, DefaultSearchLimit, f.store.lastSearch.Limit)

	f.expectTx(pgx.ReadOnly, true)
	recorder = f.serve(http.MethodGet, "/search?query=zzz", "", caller(1, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":[]}`, recorder.Body.String())

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_OwnAccountOnly(t *testing.T) {
	f := newHTTPFixture(t)

	tests := []struct {
		method, path, body, message string
	}{
		{http.MethodPut, "/2", `{"shadowMode":true}`, "You can only update your own account"},
		{http.MethodDelete, "/2", "", "You can only delete your own account"},
		{http.MethodPut, "/2/password", `{"currentPassword":"a","newPassword":"b"}`, "You can only update your own account"},
		{http.MethodPut, "/2/public-key", `{"publicKey":"k"}`, "You can only update your own account"},
		{http.MethodPost, "/2/verify-password", `{"password":"pw"}`, "You can only verify your own password"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			recorder := f.serve(tt.method, tt.path, tt.body, caller(1, "alice"))
			assert.Equal(t, http.StatusForbidden, recorder.Code)
			assert.Equal(t, tt.message, decode(t, recorder)["error"])
		})
	}
	assert.Empty(t, f.revoker.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Delete(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadWrite, true)
	recorder := f.serve(http.MethodDelete, "/1", "", caller(uid, "alice"))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.JSONEq(t, `{"data":null}`, recorder.Body.String())
	require.Len(t, f.revoker.calls, 1)
	assert.Equal(t, revocation{uid: uid, at: f.now, ttl: time.Hour}, f.revoker.calls[0])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// TestHandler_DeleteRevocationFailure verifies a Redis outage does not undo a committed delete.
func TestHandler_DeleteRevocationFailure(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})
	f.revoker.err = errors.New("redis: connection refused")

	f.expectTx(pgx.ReadWrite, true)
	recorder := f.serve(http.MethodDelete, "/1", "", caller(uid, "alice"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotContains(t, f.store.accounts, uid)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Update(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw", DisplayName: pointer.To("Alice")})

	f.expectTx(pgx.ReadWrite, true)
	recorder := f.serve(http.MethodPut, "/1", `{"displayName":null,"shadowMode":true}`, caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Nil(t, data["display_name"])
	assert.Equal(t, true, data["shadow_mode"])
	assert.Empty(t, f.revoker.calls, "profile edits keep tokens valid")

	f.expectTx(pgx.ReadWrite, true)
	recorder = f.serve(http.MethodPut, "/1", `{"password":"n3w"}`, caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, f.revoker.calls, 1)

	f.expectTx(pgx.ReadWrite, false)
	recorder = f.serve(http.MethodPut, "/1", `{}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Must provide at least one field to update", decode(t, recorder)["error"])

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

/*
TestHandler_UpdateNullFlag verifies a null boolean is ignored instead of
resetting the stored flag to false.
*/
func TestHandler_UpdateNullFlag(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadWrite, true)
	recorder := f.serve(http.MethodPut, "/1", `{"shadowMode":true}`, caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	f.expectTx(pgx.ReadWrite, true)
	recorder = f.serve(http.MethodPut, "/1", `{"shadowMode":null,"fullNameSearch":true}`, caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, true, data["shadow_mode"])
	assert.Equal(t, true, data["full_name_search"])

	f.expectTx(pgx.ReadWrite, false)
	recorder = f.serve(http.MethodPut, "/1", `{"shadowMode":null}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Must provide at least one field to update", decode(t, recorder)["error"])

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_UpdatePassword(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "old"})

	f.expectTx(pgx.ReadWrite, false)
	recorder := f.serve(http.MethodPut, "/1/password", `{"currentPassword":"bad","newPassword":"new"}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, f.revoker.calls)

	f.expectTx(pgx.ReadWrite, true)
	recorder = f.serve(http.MethodPut, "/1/password", `{"currentPassword":"old","newPassword":"new"}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, f.revoker.calls, 1)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_UpdatePublicKey(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadWrite, true)
	recorder := f.serve(http.MethodPut, "/1/public-key", `{"publicKey":"ssh-ed25519 AAAA"}`, caller(uid, "alice"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ssh-ed25519 AAAA", decode(t, recorder)["data"].(map[string]any)["public_key"])
	assert.Empty(t, f.revoker.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_VerifyPassword(t *testing.T) {
	f := newHTTPFixture(t)
	uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})

	f.expectTx(pgx.ReadOnly, true)
	recorder := f.serve(http.MethodPost, "/1/verify-password", `{"password":"pw"}`, caller(uid, "alice"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"verified":true}}`, recorder.Body.String())

	f.expectTx(pgx.ReadOnly, true)
	recorder = f.serve(http.MethodPost, "/1/verify-password", `{"password":"wrong"}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.JSONEq(t, `{"error":"Password is incorrect","code":"UNAUTHORIZED","verified":false}`, recorder.Body.String())

	recorder = f.serve(http.MethodPost, "/1/verify-password", `{"password":""}`, caller(uid, "alice"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Password is required", decode(t, recorder)["error"])

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_TransactionFailures(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		f := newHTTPFixture(t)
		f.mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite}).WillReturnError(errors.New("too many connections"))

		recorder := f.serve(http.MethodPost, "/", `{"username":"newUser","password":"pw"}`, nil)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Equal(t, MsgCreateUnexpected, decode(t, recorder)["error"])
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		f := newHTTPFixture(t)
		uid := f.register(t, CreateInput{Username: "alice", Password: "pw"})
		f.mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
		f.mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		recorder := f.serve(http.MethodDelete, "/1", "", caller(uid, "alice"))

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Equal(t, MsgDeleteUnexpected, decode(t, recorder)["error"])
		assert.Empty(t, f.revoker.calls)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}
