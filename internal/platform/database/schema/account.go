// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package schema names the tables and columns the repositories query.
package schema

// AccountTable represents the 'account' table
type AccountTable struct {
	Table          string
	UID            string
	Username       string
	PasswordHash   string
	DisplayName    string
	PublicKey      string
	ShadowMode     string
	FullNameSearch string
	IsDeleted      string
	CreatedAt      string
}

// Account is the schema definition for account
var Account = AccountTable{
	Table:          "account",
	UID:            "uid",
	Username:       "username",
	PasswordHash:   "password_hash",
	DisplayName:    "display_name",
	PublicKey:      "public_key",
	ShadowMode:     "shadow_mode",
	FullNameSearch: "full_name_search",
	IsDeleted:      "is_deleted",
	CreatedAt:      "created_at",
}

// Columns returns all standard column names
func (t AccountTable) Columns() []string {
	return []string{
		t.UID, t.Username, t.PasswordHash, t.DisplayName, t.PublicKey,
		t.ShadowMode, t.FullNameSearch, t.IsDeleted, t.CreatedAt,
	}
}
