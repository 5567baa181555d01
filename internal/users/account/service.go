// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/platform/apperr"
	"github.com/parley-chat/parley/internal/platform/ctxutil"
	"github.com/parley-chat/parley/internal/platform/dberr"
	"github.com/parley-chat/parley/internal/platform/envelope"
	"github.com/parley-chat/parley/internal/platform/validate"
	"github.com/parley-chat/parley/pkg/optional"
	"github.com/parley-chat/parley/pkg/pointer"
)

// # Contracts & Types

// PasswordHasher turns passwords into self-describing digests and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) (bool, error)
}

// TokenIssuer signs access tokens bound to an account.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Client-facing messages.
const (
	msgInvalidUserID         = "Invalid user ID"
	msgUsernameTaken         = "Username already exists"
	msgInvalidCredentials    = "Invalid username or password"
	msgCredentialsRequired   = "Username and password are required"
	msgDeletedUser           = "Cannot update deleted user"
	msgNoFields              = "Must provide at least one field to update"
	msgCurrentPasswordNeeded = "Current password is required"
	msgCurrentPasswordWrong  = "Current password is incorrect"
	msgSearchQueryRequired   = "Search query is required"
	msgCreateFailed          = "Failed to create user"
	msgDeleteFailed          = "Failed to delete user"
)

// Generic 500 messages, one per operation.
const (
	MsgCreateUnexpected = "An unexpected error occurred while creating the user."
	MsgGetUnexpected    = "An unexpected error occurred while retrieving the user."
	MsgLoginUnexpected  = "An unexpected error occurred while logging in."
	MsgDeleteUnexpected = "An unexpected error occurred while deleting the user."
	MsgUpdateUnexpected = "An unexpected error occurred while updating the user."
	MsgSearchUnexpected = "An unexpected error occurred while searching for users."
	MsgVerifyUnexpected = "An unexpected error occurred while verifying the password."
)

// Service implements the account use cases.
//
// Every operation returns an [envelope.Envelope]; expected failures never
// surface as Go errors. A Service must be bound to a request's stores with
// [Service.WithStores] before use.
type Service struct {
	accounts Repository
	contacts ContactStore
	messages MessageStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	logger   *slog.Logger
}

// NewService constructs an unbound [Service]. A nil logger means slog.Default.
func NewService(hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{hasher: hasher, tokens: tokens, logger: logger}
}

// WithStores returns a copy of the service running on stores.
func (service *Service) WithStores(stores Stores) *Service {
	bound := *service
	bound.accounts = stores.Accounts
	bound.contacts = stores.Contacts
	bound.messages = stores.Messages
	return &bound
}

// failure converts err into an envelope, logging anything that is not a client error.
func failure[T any](ctx context.Context, service *Service, operation string, err error, fallback string) envelope.Envelope[T] {
	result := envelope.Failure[T](err, fallback)
	if result.StatusCode >= http.StatusInternalServerError {
		ctxutil.LoggerOr(ctx, service.logger).ErrorContext(ctx, "account_operation_failed",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}
	return result
}

// findLive loads an account that has not been soft-deleted.
func (service *Service) findLive(ctx context.Context, uid int64) (*Account, error) {
	account, err := service.accounts.FindByID(ctx, uid)
	if errors.Is(err, dberr.ErrNotFound) || (err == nil && account.State() != StateActive) {
		return nil, apperr.NotFound("User")
	}
	return account, err
}

// findUpdatable loads an account for a write. Soft-deleted accounts are FORBIDDEN.
func (service *Service) findUpdatable(ctx context.Context, uid int64) (*Account, error) {
	account, err := service.accounts.FindByID(ctx, uid)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, err
	}
	if account.State() != StateActive {
		return nil, apperr.Forbidden(msgDeletedUser)
	}
	return account, nil
}

// usernameFree fails with CONFLICT when username belongs to an account other than ownerUID.
func (service *Service) usernameFree(ctx context.Context, username string, ownerUID int64) error {
	existing, err := service.accounts.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, dberr.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.UID != ownerUID:
		return apperr.Conflict(msgUsernameTaken)
	default:
		return nil
	}
}

func mapWriteError(err error) error {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return apperr.Conflict(msgUsernameTaken)
	case errors.Is(err, dberr.ErrNotFound):
		return apperr.NotFound("User")
	default:
		return err
	}
}

// # Registration

// CreateInput holds the data required to register an account.
type CreateInput struct {
	Username       string
	Password       string
	DisplayName    *string
	ShadowMode     bool
	FullNameSearch bool
	PublicKey      *string
}

/*
CreateAccount validates, hashes and persists a new account.

Returns:
  - 201: the new account's public fields
  - 400: invalid username (checked first) or password
  - 409: username already exists
*/
func (service *Service) CreateAccount(ctx context.Context, input CreateInput) envelope.Envelope[*PublicAccount] {
	validator := &validate.Validator{}
	validator.Username(FieldUsername, input.Username).
		Password(FieldPassword, input.Password)
	if input.PublicKey != nil {
		validator.PublicKey(FieldPublicKey, *input.PublicKey)
	}
	if err := validator.First(); err != nil {
		return envelope.Failure[*PublicAccount](err, MsgCreateUnexpected)
	}

	if err := service.usernameFree(ctx, input.Username, 0); err != nil {
		return failure[*PublicAccount](ctx, service, "create_account", err, MsgCreateUnexpected)
	}

	digest, err := service.hasher.Hash(input.Password)
	if err != nil {
		return failure[*PublicAccount](ctx, service, "create_account", err, MsgCreateUnexpected)
	}

	account, err := service.accounts.Insert(ctx, NewAccount{
		Username:       input.Username,
		PasswordHash:   digest,
		DisplayName:    input.DisplayName,
		PublicKey:      input.PublicKey,
		ShadowMode:     input.ShadowMode,
		FullNameSearch: input.FullNameSearch,
	})
	if errors.Is(err, ErrNotInserted) {
		return failure[*PublicAccount](ctx, service, "create_account", apperr.InternalMessage(msgCreateFailed, err), MsgCreateUnexpected)
	}
	if err != nil {
		return failure[*PublicAccount](ctx, service, "create_account", mapWriteError(err), MsgCreateUnexpected)
	}

	return envelope.Success(http.StatusCreated, account.Public())
}

// # Retrieval

/*
GetAccountByID returns the public view of an account as seen by requesterUID.

A shadow-mode account viewed by anyone other than itself or an accepted
contact has its display name and public key withheld.
*/
func (service *Service) GetAccountByID(ctx context.Context, uid, requesterUID int64) envelope.Envelope[*PublicAccount] {
	if uid <= 0 {
		return envelope.Failure[*PublicAccount](apperr.BadRequest(msgInvalidUserID), MsgGetUnexpected)
	}

	account, err := service.findLive(ctx, uid)
	if err != nil {
		return failure[*PublicAccount](ctx, service, "get_account", err, MsgGetUnexpected)
	}

	public := account.Public()
	if account.ShadowMode && requesterUID != uid {
		accepted, err := service.contacts.IsAccepted(ctx, uid, requesterUID)
		if err != nil {
			return failure[*PublicAccount](ctx, service, "get_account", err, MsgGetUnexpected)
		}
		if !accepted {
			public = public.Withheld()
		}
	}

	return envelope.Success(http.StatusOK, public)
}

// # Authentication

/*
Login checks credentials and issues an access token.

Unknown usernames, soft-deleted accounts and wrong passwords all answer with
the same UNAUTHORIZED message.
*/
func (service *Service) Login(ctx context.Context, username, password string) envelope.Envelope[*LoginResult] {
	if strings.TrimSpace(username) == "" || password == "" {
		return envelope.Failure[*LoginResult](apperr.BadRequest(msgCredentialsRequired), MsgLoginUnexpected)
	}

	account, err := service.accounts.FindByUsername(ctx, username)
	if errors.Is(err, dberr.ErrNotFound) || (err == nil && account.State() != StateActive) {
		return envelope.Failure[*LoginResult](apperr.Unauthorized(msgInvalidCredentials), MsgLoginUnexpected)
	}
	if err != nil {
		return failure[*LoginResult](ctx, service, "login", err, MsgLoginUnexpected)
	}

	matched, err := service.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		return failure[*LoginResult](ctx, service, "login", err, MsgLoginUnexpected)
	}
	if !matched {
		return envelope.Failure[*LoginResult](apperr.Unauthorized(msgInvalidCredentials), MsgLoginUnexpected)
	}

	token, expiresAt, err := service.tokens.Issue(account.UID, account.Username)
	if err != nil {
		return failure[*LoginResult](ctx, service, "login", err, MsgLoginUnexpected)
	}

	return envelope.Success(http.StatusOK, &LoginResult{
		PublicAccount: *account.Public(),
		Token:         token,
		ExpiresAt:     expiresAt,
	})
}

// VerifyPassword re-checks the password of an active account.
//
// Unknown and soft-deleted accounts yield false. A corrupt stored digest is an error.
func (service *Service) VerifyPassword(ctx context.Context, uid int64, password string) (bool, error) {
	if uid <= 0 || password == "" {
		return false, nil
	}

	account, err := service.findLive(ctx, uid)
	if apperr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return service.hasher.Verify(account.PasswordHash, password)
}

// # Deletion

/*
DeleteAccount walks the account through SoftDeleted to Purged.

Contacts go first, then messages, then the account row. The caller's
transaction makes the sequence atomic; a row inserted concurrently by another
transaction fails the final delete with "Failed to delete user".
*/
func (service *Service) DeleteAccount(ctx context.Context, uid int64) envelope.Envelope[any] {
	if uid <= 0 {
		return envelope.Failure[any](apperr.BadRequest(msgInvalidUserID), MsgDeleteUnexpected)
	}

	account, err := service.accounts.FindByID(ctx, uid)
	if errors.Is(err, dberr.ErrNotFound) {
		return envelope.Failure[any](apperr.NotFound("User"), MsgDeleteUnexpected)
	}
	if err != nil {
		return failure[any](ctx, service, "delete_account", err, MsgDeleteUnexpected)
	}

	state := account.State()
	if state.CanTransition(StateSoftDeleted) {
		if err := service.accounts.SoftDelete(ctx, uid); err != nil {
			return failure[any](ctx, service, "delete_account", err, MsgDeleteUnexpected)
		}
		state = StateSoftDeleted
	}

	if !state.CanTransition(StatePurged) {
		return failure[any](ctx, service, "delete_account", errors.New("account: illegal lifecycle transition from "+state.String()), MsgDeleteUnexpected)
	}

	contacts, err := service.contacts.DeleteForUser(ctx, uid)
	if err != nil {
		return failure[any](ctx, service, "delete_account", err, MsgDeleteUnexpected)
	}

	messages, err := service.messages.DeleteForUser(ctx, uid)
	if err != nil {
		return failure[any](ctx, service, "delete_account", err, MsgDeleteUnexpected)
	}

	removed, err := service.accounts.HardDelete(ctx, uid)
	if errors.Is(err, dberr.ErrForeignKeyViolation) {
		// A contact or message row was written after the cleanup above.
		return failure[any](ctx, service, "delete_account", apperr.InternalMessage(msgDeleteFailed, err), MsgDeleteUnexpected)
	}
	if err != nil {
		return failure[any](ctx, service, "delete_account", err, MsgDeleteUnexpected)
	}
	if removed == 0 {
		return failure[any](ctx, service, "delete_account", apperr.InternalMessage(msgDeleteFailed, nil), MsgDeleteUnexpected)
	}

	ctxutil.LoggerOr(ctx, service.logger).InfoContext(ctx, "account_purged",
		slog.Int64("uid", uid),
		slog.Int64("contacts_deleted", contacts),
		slog.Int64("messages_deleted", messages),
	)

	return envelope.Success[any](http.StatusOK, nil)
}

// # Profile Management

// UpdateInput lists the fields a caller wants to change.
type UpdateInput struct {
	Username       optional.Value[string]
	Password       optional.Value[string]
	DisplayName    optional.Value[*string]
	ShadowMode     optional.Value[bool]
	FullNameSearch optional.Value[bool]
	PublicKey      optional.Value[*string]
}

// IsEmpty reports whether no field was supplied.
func (input UpdateInput) IsEmpty() bool {
	return !input.Username.IsSet() &&
		!input.Password.IsSet() &&
		!input.DisplayName.IsSet() &&
		!input.ShadowMode.IsSet() &&
		!input.FullNameSearch.IsSet() &&
		!input.PublicKey.IsSet()
}

/*
UpdateAccount applies a partial update to an active account.

The deleted-account check runs before any field validation, so a soft-deleted
target is always FORBIDDEN.
*/
func (service *Service) UpdateAccount(ctx context.Context, uid int64, input UpdateInput) envelope.Envelope[*PublicAccount] {
	if uid <= 0 {
		return envelope.Failure[*PublicAccount](apperr.BadRequest(msgInvalidUserID), MsgUpdateUnexpected)
	}

	current, err := service.findUpdatable(ctx, uid)
	if err != nil {
		return failure[*PublicAccount](ctx, service, "update_account", err, MsgUpdateUnexpected)
	}

	if input.IsEmpty() {
		return envelope.Failure[*PublicAccount](apperr.BadRequest(msgNoFields), MsgUpdateUnexpected)
	}

	validator := &validate.Validator{}
	if username, ok := input.Username.Get(); ok {
		validator.Username(FieldUsername, username)
	}
	if password, ok := input.Password.Get(); ok {
		validator.Password(FieldPassword, password)
	}
	if key, ok := input.PublicKey.Get(); ok && key != nil {
		validator.PublicKey(FieldPublicKey, *key)
	}
	if err := validator.First(); err != nil {
		return envelope.Failure[*PublicAccount](err, MsgUpdateUnexpected)
	}

	patch := Patch{
		DisplayName:    input.DisplayName,
		PublicKey:      input.PublicKey,
		ShadowMode:     input.ShadowMode,
		FullNameSearch: input.FullNameSearch,
	}

	if username, ok := input.Username.Get(); ok && username != current.Username {
		if err := service.usernameFree(ctx, username, uid); err != nil {
			return failure[*PublicAccount](ctx, service, "update_account", err, MsgUpdateUnexpected)
		}
		patch.Username = optional.Some(username)
	}

	if password, ok := input.Password.Get(); ok {
		digest, err := service.hasher.Hash(password)
		if err != nil {
			return failure[*PublicAccount](ctx, service, "update_account", err, MsgUpdateUnexpected)
		}
		patch.PasswordHash = optional.Some(digest)
	}

	// Only an unchanged username was supplied.
	if patch.IsEmpty() {
		return envelope.Success(http.StatusOK, current.Public())
	}

	updated, err := service.accounts.Update(ctx, uid, patch)
	if err != nil {
		return failure[*PublicAccount](ctx, service, "update_account", mapWriteError(err), MsgUpdateUnexpected)
	}

	return envelope.Success(http.StatusOK, updated.Public())
}

/*
UpdatePassword replaces the password after checking the current one.

Returns:
  - 200: null data
  - 400: invalid uid, missing current password or invalid new password
  - 401: current password does not match
  - 403: account is soft-deleted
*/
func (service *Service) UpdatePassword(ctx context.Context, uid int64, currentPassword, newPassword string) envelope.Envelope[any] {
	validator := &validate.Validator{}
	validator.Custom(FieldUID, uid <= 0, msgInvalidUserID).
		Custom(FieldCurrentPassword, currentPassword == "", msgCurrentPasswordNeeded).
		Password(FieldNewPassword, newPassword)
	if err := validator.First(); err != nil {
		return envelope.Failure[any](err, MsgUpdateUnexpected)
	}

	account, err := service.findUpdatable(ctx, uid)
	if err != nil {
		return failure[any](ctx, service, "update_password", err, MsgUpdateUnexpected)
	}

	matched, err := service.hasher.Verify(account.PasswordHash, currentPassword)
	if err != nil {
		return failure[any](ctx, service, "update_password", err, MsgUpdateUnexpected)
	}
	if !matched {
		return envelope.Failure[any](apperr.Unauthorized(msgCurrentPasswordWrong), MsgUpdateUnexpected)
	}

	digest, err := service.hasher.Hash(newPassword)
	if err != nil {
		return failure[any](ctx, service, "update_password", err, MsgUpdateUnexpected)
	}

	if _, err := service.accounts.Update(ctx, uid, Patch{PasswordHash: optional.Some(digest)}); err != nil {
		return failure[any](ctx, service, "update_password", mapWriteError(err), MsgUpdateUnexpected)
	}

	return envelope.Success[any](http.StatusOK, nil)
}

// UpdatePublicKey stores the opaque end-to-end encryption key of an account.
func (service *Service) UpdatePublicKey(ctx context.Context, uid int64, publicKey string) envelope.Envelope[*PublicAccount] {
	validator := &validate.Validator{}
	validator.Custom(FieldUID, uid <= 0, msgInvalidUserID).
		PublicKey(FieldPublicKey, publicKey)
	if err := validator.First(); err != nil {
		return envelope.Failure[*PublicAccount](err, MsgUpdateUnexpected)
	}

	if _, err := service.findUpdatable(ctx, uid); err != nil {
		return failure[*PublicAccount](ctx, service, "update_public_key", err, MsgUpdateUnexpected)
	}

	updated, err := service.accounts.Update(ctx, uid, Patch{PublicKey: optional.Some(pointer.To(publicKey))})
	if err != nil {
		return failure[*PublicAccount](ctx, service, "update_public_key", mapWriteError(err), MsgUpdateUnexpected)
	}

	return envelope.Success(http.StatusOK, updated.Public())
}

// # Discovery

// NormalizeSearchLimit maps a requested limit onto [1, MaxSearchLimit],
// defaulting non-positive values.
func NormalizeSearchLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

// SearchAccounts finds active accounts by username or opted-in display name.
// No match is a 200 with an empty list.
func (service *Service) SearchAccounts(ctx context.Context, query string, limit int) envelope.Envelope[[]Summary] {
	validator := &validate.Validator{}
	if err := validator.Required(FieldQuery, query, msgSearchQueryRequired).First(); err != nil {
		return envelope.Failure[[]Summary](err, MsgSearchUnexpected)
	}
	text := strings.TrimSpace(query)

	summaries, err := service.accounts.Search(ctx, SearchQuery{Text: text, Limit: NormalizeSearchLimit(limit)})
	if err != nil {
		return failure[[]Summary](ctx, service, "search_accounts", err, MsgSearchUnexpected)
	}
	if summaries == nil {
		summaries = []Summary{}
	}

	return envelope.Success(http.StatusOK, summaries)
}
