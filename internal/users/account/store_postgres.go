// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/parley-chat/parley/internal/platform/database/schema"
	"github.com/parley-chat/parley/internal/platform/dberr"
	"github.com/parley-chat/parley/internal/platform/postgres"
)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a repository running its statements on db,
// which is normally the request's transaction.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var accountColumns = strings.Join(schema.Account.Columns(), ", ")

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.UID,
		&account.Username,
		&account.PasswordHash,
		&account.DisplayName,
		&account.PublicKey,
		&account.ShadowMode,
		&account.FullNameSearch,
		&account.IsDeleted,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

/*
FindByID retrieves an account row by uid, soft-deleted or not.

Returns:
  - *Account: Hydrated entity
  - error: dberr.ErrNotFound or database execution failure
*/
func (repository *PostgresRepository) FindByID(ctx context.Context, uid int64) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.Account.Table, schema.Account.UID)

	account, err := scanAccount(repository.db.QueryRow(ctx, query, uid))
	if err != nil {
		return nil, dberr.Wrap(err, "account_repo_find_by_id")
	}
	return account, nil
}

// FindByUsername retrieves an account row by its exact username.
func (repository *PostgresRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.Account.Table, schema.Account.Username)

	account, err := scanAccount(repository.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "account_repo_find_by_username")
	}
	return account, nil
}

/*
Insert persists a brand-new account and returns the stored row.

Returns:
  - *Account: Row as written, with uid and created_at assigned by the database
  - error: ErrUsernameTaken, ErrNotInserted or execution failure
*/
func (repository *PostgresRepository) Insert(ctx context.Context, input NewAccount) (*Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`,
		schema.Account.Table,
		schema.Account.Username, schema.Account.PasswordHash, schema.Account.DisplayName,
		schema.Account.PublicKey, schema.Account.ShadowMode, schema.Account.FullNameSearch,
		accountColumns,
	)

	account, err := scanAccount(repository.db.QueryRow(ctx, query,
		input.Username,
		input.PasswordHash,
		input.DisplayName,
		input.PublicKey,
		input.ShadowMode,
		input.FullNameSearch,
	))

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotInserted
	case dberr.IsUniqueViolation(err):
		return nil, fmt.Errorf("%w: %v", ErrUsernameTaken, err)
	default:
		return nil, fmt.Errorf("account_repo_insert: %w", err)
	}
}

/*
Update writes only the columns set in patch.

Returns:
  - *Account: Row after the update
  - error: ErrEmptyPatch, ErrUsernameTaken, dberr.ErrNotFound or execution failure
*/
func (repository *PostgresRepository) Update(ctx context.Context, uid int64, patch Patch) (*Account, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	args := []any{uid}
	assignments := make([]string, 0, 6)
	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if value, ok := patch.Username.Get(); ok {
		set(schema.Account.Username, value)
	}
	if value, ok := patch.PasswordHash.Get(); ok {
		set(schema.Account.PasswordHash, value)
	}
	if value, ok := patch.DisplayName.Get(); ok {
		set(schema.Account.DisplayName, value)
	}
	if value, ok := patch.PublicKey.Get(); ok {
		set(schema.Account.PublicKey, value)
	}
	if value, ok := patch.ShadowMode.Get(); ok {
		set(schema.Account.ShadowMode, value)
	}
	if value, ok := patch.FullNameSearch.Get(); ok {
		set(schema.Account.FullNameSearch, value)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $1 RETURNING %s`,
		schema.Account.Table, strings.Join(assignments, ", "), schema.Account.UID, accountColumns)

	account, err := scanAccount(repository.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrUsernameTaken, err)
		}
		return nil, dberr.Wrap(err, "account_repo_update")
	}
	return account, nil
}

// SoftDelete flags an account as deleted without removing the row.
func (repository *PostgresRepository) SoftDelete(ctx context.Context, uid int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = $1`,
		schema.Account.Table, schema.Account.IsDeleted, schema.Account.UID)

	tag, err := repository.db.Exec(ctx, query, uid)
	if err != nil {
		return fmt.Errorf("account_repo_soft_delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account_repo_soft_delete: %w", dberr.ErrNotFound)
	}
	return nil
}

// HardDelete removes the account row. Rows still referencing it surface as
// dberr.ErrForeignKeyViolation.
func (repository *PostgresRepository) HardDelete(ctx context.Context, uid int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Account.Table, schema.Account.UID)

	tag, err := repository.db.Exec(ctx, query, uid)
	if err != nil {
		return 0, dberr.Wrap(err, "account_repo_hard_delete")
	}
	return tag.RowsAffected(), nil
}

/*
Search matches active accounts by username and, where the owner opted in, by
display name.

Shadow-mode accounts only match on their exact username. The text is matched
case-insensitively as a substring with LIKE metacharacters escaped.
*/
func (repository *PostgresRepository) Search(ctx context.Context, search SearchQuery) ([]Summary, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, %[2]s, %[3]s, %[4]s
		FROM %[5]s
		WHERE %[6]s = FALSE
		  AND (
		        %[2]s = $1
		     OR (%[7]s = FALSE AND (
		            %[2]s ILIKE $2 ESCAPE '\'
		         OR (%[8]s = TRUE AND %[3]s ILIKE $2 ESCAPE '\')
		        ))
		  )
		ORDER BY %[2]s
		LIMIT $3`,
		schema.Account.UID, schema.Account.Username, schema.Account.DisplayName, schema.Account.CreatedAt,
		schema.Account.Table, schema.Account.IsDeleted, schema.Account.ShadowMode, schema.Account.FullNameSearch,
	)

	rows, err := repository.db.Query(ctx, query, search.Text, "%"+EscapeLike(search.Text)+"%", search.Limit)
	if err != nil {
		return nil, fmt.Errorf("account_repo_search: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var summary Summary
		err := row.Scan(&summary.UID, &summary.Username, &summary.DisplayName, &summary.CreatedAt)
		return summary, err
	})
	if err != nil {
		return nil, fmt.Errorf("account_repo_search_scan: %w", err)
	}

	return summaries, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters in s so it matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
