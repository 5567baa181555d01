// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"errors"

	"github.com/parley-chat/parley/internal/platform/postgres"
)

var (
	// ErrUsernameTaken is returned when a write collides with the username unique constraint.
	ErrUsernameTaken = errors.New("account: username taken")

	// ErrNotInserted is returned when an insert reports no row back.
	ErrNotInserted = errors.New("account: insert returned no row")

	// ErrEmptyPatch is returned by Update when the patch has no fields.
	ErrEmptyPatch = errors.New("account: empty patch")
)

// # Data Access

// Repository defines the persistence contract for accounts.
//
// Lookups include soft-deleted rows; the service decides what they mean.
// Missing rows are reported as dberr.ErrNotFound.
type Repository interface {
	FindByID(ctx context.Context, uid int64) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)

	/*
		Insert persists a new account and returns it as stored.

		Returns:
		  - ErrUsernameTaken: the username exists (including soft-deleted rows)
		  - ErrNotInserted: the statement reported no row
	*/
	Insert(ctx context.Context, input NewAccount) (*Account, error)

	// Update applies the set fields of patch and returns the stored result.
	Update(ctx context.Context, uid int64, patch Patch) (*Account, error)

	SoftDelete(ctx context.Context, uid int64) error

	// HardDelete removes the row and reports how many rows went away.
	HardDelete(ctx context.Context, uid int64) (int64, error)

	// Search returns active accounts matching query, ordered by username.
	Search(ctx context.Context, query SearchQuery) ([]Summary, error)
}

// ContactStore is the slice of the contact store account operations need.
type ContactStore interface {
	DeleteForUser(ctx context.Context, uid int64) (int64, error)
	IsAccepted(ctx context.Context, ownerUID, otherUID int64) (bool, error)
}

// MessageStore is the slice of the message store account deletion needs.
type MessageStore interface {
	DeleteForUser(ctx context.Context, uid int64) (int64, error)
}

// Stores groups the repositories one request works with.
type Stores struct {
	Accounts Repository
	Contacts ContactStore
	Messages MessageStore
}

// StoreFactory builds the stores for a request from its transaction.
type StoreFactory func(q postgres.Querier) Stores
