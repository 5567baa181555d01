// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/parley-chat/parley/internal/platform/database/schema"
	"github.com/parley-chat/parley/internal/platform/postgres"
)

// PostgresRepository reads and removes contact rows.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a repository running its statements on db.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DeleteForUser removes every row where uid is either side of the relationship.
func (repository *PostgresRepository) DeleteForUser(ctx context.Context, uid int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 OR %s = $1`,
		schema.Contact.Table, schema.Contact.UserID, schema.Contact.ContactUserID)

	tag, err := repository.db.Exec(ctx, query, uid)
	if err != nil {
		return 0, fmt.Errorf("contact_repo_delete_for_user: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
StatusBetween returns ownerUID's status towards otherUID.

Returns:
  - Status: the stored status
  - bool: false when no row exists
  - error: execution failure, or ErrUnknownStatus for a value outside the
    status enum
*/
func (repository *PostgresRepository) StatusBetween(ctx context.Context, ownerUID, otherUID int64) (Status, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		schema.Contact.Status, schema.Contact.Table, schema.Contact.UserID, schema.Contact.ContactUserID)

	var status string
	err := repository.db.QueryRow(ctx, query, ownerUID, otherUID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("contact_repo_status_between: %w", err)
	}
	if !Status(status).Valid() {
		return "", false, fmt.Errorf("contact_repo_status_between: %w %q", ErrUnknownStatus, status)
	}
	return Status(status), true, nil
}

// IsAccepted reports whether ownerUID has accepted otherUID as a contact.
func (repository *PostgresRepository) IsAccepted(ctx context.Context, ownerUID, otherUID int64) (bool, error) {
	status, found, err := repository.StatusBetween(ctx, ownerUID, otherUID)
	if err != nil {
		return false, err
	}
	return found && status == StatusAccepted, nil
}
