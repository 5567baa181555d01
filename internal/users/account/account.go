// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package account implements the account lifecycle: registration, login, profile
updates, password and key rotation, search and deletion.

# Architecture

  - Entities: Account, PublicAccount (wire view), Summary (search result).
  - Service: validates input and maps every outcome to an [envelope.Envelope].
  - Storage: Repository over a postgres.Querier, bound to one transaction per request.
  - Transport: chi Handler mounted at /api/v1/user.
*/
package account

import (
	"time"

	"github.com/parley-chat/parley/pkg/optional"
)

// # Lifecycle

// State is the lifecycle position of an account.
type State int

const (
	// StateActive accounts can log in and be updated.
	StateActive State = iota
	// StateSoftDeleted accounts keep their row but are hidden from reads.
	StateSoftDeleted
	// StatePurged accounts no longer exist in storage.
	StatePurged
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSoftDeleted:
		return "soft_deleted"
	case StatePurged:
		return "purged"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is legal.
// The lifecycle only moves forward: Active, then SoftDeleted, then Purged.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateActive:
		return next == StateSoftDeleted
	case StateSoftDeleted:
		return next == StatePurged
	default:
		return false
	}
}

// # Domain Entities

// Account is a registered user identity as stored.
type Account struct {
	UID            int64
	Username       string
	PasswordHash   string // Never leaves the service layer.
	DisplayName    *string
	PublicKey      *string
	ShadowMode     bool
	FullNameSearch bool
	IsDeleted      bool
	CreatedAt      time.Time
}

// State derives the lifecycle state from the stored soft-delete flag.
func (a *Account) State() State {
	if a.IsDeleted {
		return StateSoftDeleted
	}
	return StateActive
}

// Public returns the client-facing view of the account.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		UID:            a.UID,
		Username:       a.Username,
		CreatedAt:      a.CreatedAt,
		DisplayName:    a.DisplayName,
		ShadowMode:     a.ShadowMode,
		FullNameSearch: a.FullNameSearch,
		PublicKey:      a.PublicKey,
	}
}

// PublicAccount is the account as returned to callers. It never carries the password hash.
type PublicAccount struct {
	UID            int64     `json:"uid"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
	DisplayName    *string   `json:"display_name"`
	ShadowMode     bool      `json:"shadow_mode"`
	FullNameSearch bool      `json:"full_name_search"`
	PublicKey      *string   `json:"public_key"`
}

// Withheld strips the fields a shadow-mode account hides from strangers.
func (p *PublicAccount) Withheld() *PublicAccount {
	withheld := *p
	withheld.DisplayName = nil
	withheld.PublicKey = nil
	return &withheld
}

// Summary is one search hit.
type Summary struct {
	UID         int64     `json:"uid"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	PublicAccount
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// # Write Models

// NewAccount is the data needed to insert an account row.
type NewAccount struct {
	Username       string
	PasswordHash   string
	DisplayName    *string
	PublicKey      *string
	ShadowMode     bool
	FullNameSearch bool
}

// Patch lists the columns an update touches. Unset fields are left as stored.
type Patch struct {
	Username       optional.Value[string]
	PasswordHash   optional.Value[string]
	DisplayName    optional.Value[*string]
	PublicKey      optional.Value[*string]
	ShadowMode     optional.Value[bool]
	FullNameSearch optional.Value[bool]
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return !p.Username.IsSet() &&
		!p.PasswordHash.IsSet() &&
		!p.DisplayName.IsSet() &&
		!p.PublicKey.IsSet() &&
		!p.ShadowMode.IsSet() &&
		!p.FullNameSearch.IsSet()
}

// SearchQuery is a normalized search request.
type SearchQuery struct {
	Text  string
	Limit int
}

// # Field Identifiers

const (
	FieldUID             = "uid"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldDisplayName     = "displayName"
	FieldPublicKey       = "publicKey"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldQuery           = "query"
	FieldLimit           = "limit"
)
