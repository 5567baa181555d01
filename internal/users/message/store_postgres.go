// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package message owns the message rows that account deletion must clear.
package message

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/internal/platform/database/schema"
	"github.com/parley-chat/parley/internal/platform/postgres"
)

// PostgresRepository removes message rows.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a repository running its statements on db.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DeleteForUser removes every message uid sent or received.
func (repository *PostgresRepository) DeleteForUser(ctx context.Context, uid int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 OR %s = $1`,
		schema.Message.Table, schema.Message.SenderUID, schema.Message.ReceiverUID)

	tag, err := repository.db.Exec(ctx, query, uid)
	if err != nil {
		return 0, fmt.Errorf("message_repo_delete_for_user: %w", err)
	}
	return tag.RowsAffected(), nil
}
