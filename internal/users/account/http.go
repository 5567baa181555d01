// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/constants"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/envelope"
	"github.com/parley-chat/parley/internal/platform/middleware"
	"github.com/parley-chat/parley/internal/platform/postgres"
	requestutil "github.com/parley-chat/parley/internal/platform/request"
	"github.com/parley-chat/parley/internal/platform/respond"
	"github.com/parley-chat/parley/pkg/optional"
)

// # Definitions & Constructors

// Revoker invalidates every token of a user issued up to a given instant.
type Revoker interface {
	Revoke(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error
}

// Handler implements the /api/v1/user endpoints.
//
// Each request runs its service call inside one transaction. Mutations are
// committed only when the resulting envelope is 2xx.
type Handler struct {
	service     *Service
	db          postgres.TxBeginner
	stores      StoreFactory
	revocations Revoker
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewHandler constructs a [Handler].
func NewHandler(service *Service, db postgres.TxBeginner, stores StoreFactory, revocations Revoker, tokenTTL time.Duration) *Handler {
	return &Handler{
		service:     service,
		db:          db,
		stores:      stores,
		revocations: revocations,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// Routes returns a [chi.Router] with the account endpoints.
//
// # Endpoints
//   - POST   /                      : Register an account.
//   - POST   /login                 : Authenticate and receive a token.
//   - GET    /search                : Find accounts (auth).
//   - GET    /{uid}                 : Fetch an account (auth).
//   - PUT    /{uid}                 : Partial update of own account (auth).
//   - DELETE /{uid}                 : Delete own account (auth).
//   - PUT    /{uid}/password        : Change own password (auth).
//   - PUT    /{uid}/public-key      : Replace own public key (auth).
//   - POST   /{uid}/verify-password : Re-check own password (auth).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.create)
	router.Post("/login", handler.login)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/search", handler.search)
		r.Get("/{uid}", handler.get)
		r.Put("/{uid}", handler.update)
		r.Delete("/{uid}", handler.delete)
		r.Put("/{uid}/password", handler.updatePassword)
		r.Put("/{uid}/public-key", handler.updatePublicKey)
		r.Post("/{uid}/verify-password", handler.verifyPassword)
	})

	return router
}

// # Request Payloads

type createRequest struct {
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	DisplayName    *string `json:"displayName"`
	ShadowMode     bool    `json:"shadowMode"`
	FullNameSearch bool    `json:"fullNameSearch"`
	PublicKey      *string `json:"publicKey"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateRequest struct {
	Username       optional.Value[string]  `json:"username"`
	Password       optional.Value[string]  `json:"password"`
	DisplayName    optional.Value[*string] `json:"displayName"`
	ShadowMode     optional.Value[bool]    `json:"shadowMode"`
	FullNameSearch optional.Value[bool]    `json:"fullNameSearch"`
	PublicKey      optional.Value[*string] `json:"publicKey"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type publicKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type verifyFailure struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Verified bool   `json:"verified"`
}

// # Transaction Scope

// inTx runs call on a service bound to a fresh transaction and commits when the
// envelope is 2xx. A failure to open or commit the transaction becomes a 500
// with the operation's generic message.
func inTx[T any](ctx context.Context, handler *Handler, access pgx.TxAccessMode, fallback string, call func(context.Context, *Service) envelope.Envelope[T]) envelope.Envelope[T] {
	var result envelope.Envelope[T]

	err := postgres.WithTx(ctx, handler.db, pgx.TxOptions{AccessMode: access}, func(ctx context.Context, q postgres.Querier) (bool, error) {
		result = call(ctx, handler.service.WithStores(handler.stores(q)))
		return result.OK(), nil
	})
	if err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "account_tx_failed", slog.Any("error", err))
		return envelope.Failure[T](err, fallback)
	}

	return result
}

// revoke invalidates the user's outstanding tokens after a committed change.
// The change itself stands even if Redis is unreachable.
func (handler *Handler) revoke(ctx context.Context, uid int64) {
	if err := handler.revocations.Revoke(ctx, uid, handler.now(), handler.tokenTTL); err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "token_revocation_failed",
			slog.Int64("uid", uid),
			slog.Any("error", err),
		)
	}
}

// ownAccount answers 403 with message unless the caller is uid.
func ownAccount(writer http.ResponseWriter, request *http.Request, uid int64, message string) bool {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return false
	}
	if uid <= 0 {
		respond.Error(writer, request, apperr.BadRequest(msgInvalidUserID))
		return false
	}
	if claims.UserID != uid {
		respond.Error(writer, request, apperr.Forbidden(message))
		return false
	}
	return true
}

// # Handlers

/*
Create registers a new account.

POST /api/v1/user

Response:
  - 201: PublicAccount
  - 400: invalid username or password
  - 409: username already exists
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := inTx(request.Context(), handler, pgx.ReadWrite, MsgCreateUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[*PublicAccount] {
		return service.CreateAccount(ctx, CreateInput{
			Username:       input.Username,
			Password:       input.Password,
			DisplayName:    input.DisplayName,
			ShadowMode:     input.ShadowMode,
			FullNameSearch: input.FullNameSearch,
			PublicKey:      input.PublicKey,
		})
	})

	respond.Envelope(writer, request, result)
}

/*
Login authenticates a user and returns an access token.

POST /api/v1/user/login

Response:
  - 200: LoginResult (account fields plus token)
  - 400: missing username or password
  - 401: invalid username or password
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := inTx(request.Context(), handler, pgx.ReadOnly, MsgLoginUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[*LoginResult] {
		return service.Login(ctx, input.Username, input.Password)
	})

	respond.Envelope(writer, request, result)
}

// Search handles GET /api/v1/user/search?query=&limit=.
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get(FieldQuery)
	limit := requestutil.QueryInt(request, FieldLimit, DefaultSearchLimit)

	result := inTx(request.Context(), handler, pgx.ReadOnly, MsgSearchUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[[]Summary] {
		return service.SearchAccounts(ctx, query, limit)
	})

	respond.Envelope(writer, request, result)
}

// Get handles GET /api/v1/user/{uid}.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	requesterUID, _ := ctxutil.GetUserID(request.Context())

	result := inTx(request.Context(), handler, pgx.ReadOnly, MsgGetUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[*PublicAccount] {
		return service.GetAccountByID(ctx, uid, requesterUID)
	})

	respond.Envelope(writer, request, result)
}

/*
Update applies a partial update to the caller's own account.

PUT /api/v1/user/{uid}

Only keys present in the body are changed. An explicit null clears a nullable
field. Changing the password revokes outstanding tokens.
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	if !ownAccount(writer, request, uid, "You can only update your own account") {
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	update := UpdateInput(input)
	result := inTx(request.Context(), handler, pgx.ReadWrite, MsgUpdateUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[*PublicAccount] {
		return service.UpdateAccount(ctx, uid, update)
	})

	if result.OK() && update.Password.IsSet() {
		handler.revoke(request.Context(), uid)
	}

	respond.Envelope(writer, request, result)
}

// Delete handles DELETE /api/v1/user/{uid}. Outstanding tokens are revoked once committed.
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	if !ownAccount(writer, request, uid, "You can only delete your own account") {
		return
	}

	result := inTx(request.Context(), handler, pgx.ReadWrite, MsgDeleteUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[any] {
		return service.DeleteAccount(ctx, uid)
	})

	if result.OK() {
		handler.revoke(request.Context(), uid)
	}

	respond.Envelope(writer, request, result)
}

// UpdatePassword handles PUT /api/v1/user/{uid}/password.
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	if !ownAccount(writer, request, uid, "You can only update your own account") {
		return
	}

	var input passwordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := inTx(request.Context(), handler, pgx.ReadWrite, MsgUpdateUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[any] {
		return service.UpdatePassword(ctx, uid, input.CurrentPassword, input.NewPassword)
	})

	if result.OK() {
		handler.revoke(request.Context(), uid)
	}

	respond.Envelope(writer, request, result)
}

// UpdatePublicKey handles PUT /api/v1/user/{uid}/public-key.
func (handler *Handler) updatePublicKey(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	if !ownAccount(writer, request, uid, "You can only update your own account") {
		return
	}

	var input publicKeyRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := inTx(request.Context(), handler, pgx.ReadWrite, MsgUpdateUnexpected, func(ctx context.Context, service *Service) envelope.Envelope[*PublicAccount] {
		return service.UpdatePublicKey(ctx, uid, input.PublicKey)
	})

	respond.Envelope(writer, request, result)
}

/*
VerifyPassword re-checks the caller's password before a sensitive action.

POST /api/v1/user/{uid}/verify-password

Response:
  - 200: {"data": {"verified": true}}
  - 400: password missing
  - 401: {"error": "Password is incorrect", "code": "UNAUTHORIZED", "verified": false}
*/
func (handler *Handler) verifyPassword(writer http.ResponseWriter, request *http.Request) {
	uid := requestutil.Int64Param(request, FieldUID)
	if !ownAccount(writer, request, uid, "You can only verify your own password") {
		return
	}

	var input verifyPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Password == "" {
		respond.Error(writer, request, apperr.BadRequest("Password is required"))
		return
	}

	var verified bool
	var verifyErr error
	err := postgres.WithTx(request.Context(), handler.db, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, q postgres.Querier) (bool, error) {
		verified, verifyErr = handler.service.WithStores(handler.stores(q)).VerifyPassword(ctx, uid, input.Password)
		return verifyErr == nil, nil
	})
	if err == nil {
		err = verifyErr
	}
	if err != nil {
		respond.Error(writer, request, apperr.InternalMessage(MsgVerifyUnexpected, err))
		return
	}

	if !verified {
		unauthorized := apperr.Unauthorized("Password is incorrect")
		respond.JSON(writer, unauthorized.HTTPStatus, verifyFailure{
			Error:    unauthorized.Message,
			Code:     unauthorized.Code,
			Verified: false,
		})
		return
	}

	respond.OK(writer, map[string]bool{constants.FieldVerified: true})
}
