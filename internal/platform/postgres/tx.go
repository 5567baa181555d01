// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the statement surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner opens transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// DB is what the HTTP layer needs from the pool: direct queries plus transactions.
type DB interface {
	Querier
	TxBeginner
}

// TxFunc runs inside a transaction. Returning commit=false rolls the
// transaction back without reporting an error.
type TxFunc func(ctx context.Context, q Querier) (commit bool, err error)

// WithTx runs fn inside a single transaction.
//
// The transaction is committed only when fn returns (true, nil). An error,
// commit=false or a panic rolls it back. Rollback uses a context detached from
// cancellation so an aborted request still releases its connection cleanly.
func WithTx(ctx context.Context, db TxBeginner, opts pgx.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}

		rollbackErr := tx.Rollback(context.WithoutCancel(ctx))
		if p := recover(); p != nil {
			panic(p)
		}
		if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rollbackErr))
		}
	}()

	commit, err := fn(ctx, tx)
	if err != nil || !commit {
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	return nil
}
