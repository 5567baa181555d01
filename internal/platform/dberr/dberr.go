// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package dberr classifies pgx errors into the few sentinels repositories and
// services branch on. Everything else stays an opaque internal failure.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = pgerrcode.UniqueViolation
	CodeForeignKeyViolation = pgerrcode.ForeignKeyViolation
)

var (
	// ErrNotFound is returned by repositories when a queried row doesn't exist.
	ErrNotFound = errors.New("dberr: not found")

	// ErrUniqueViolation is returned when a write hits a unique constraint.
	ErrUniqueViolation = errors.New("dberr: unique violation")

	// ErrForeignKeyViolation is returned when a delete still has referencing
	// rows, e.g. a contact created while its account was being purged.
	ErrForeignKeyViolation = errors.New("dberr: foreign key violation")
)

// Wrap classifies a database error, annotating it with the failed action.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", action, ErrNotFound)
	}

	switch code(err) {
	case CodeUniqueViolation:
		return fmt.Errorf("%s: %w: %v", action, ErrUniqueViolation, err)
	case CodeForeignKeyViolation:
		return fmt.Errorf("%s: %w: %v", action, ErrForeignKeyViolation, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	return code(err) == CodeUniqueViolation
}

// code returns the SQLSTATE of err, or "" when err did not come from the server.
func code(err error) string {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError.Code
	}
	return ""
}
