// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package migration applies the SQL files under MIGRATION_PATH with
// golang-migrate before the API starts serving.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// "pgx5" database scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// "file" source scheme.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirty is returned when a previous run failed halfway. The schema must be
// repaired by hand (migrate force) before the API may start.
var ErrDirty = errors.New("migration: database is dirty")

// RunUp brings the account, contact and message schema to the latest version.
func RunUp(dsn, migrationsPath string, logger *slog.Logger) error {
	migrator, err := migrate.New(SourceURL(migrationsPath), Pgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceErr, dbErr := migrator.Close()
		if closeErr := errors.Join(sourceErr, dbErr); closeErr != nil {
			logger.Warn("migration_close_failed", slog.Any("error", closeErr))
		}
	}()
	migrator.Log = &slogAdapter{logger: logger}

	from, err := currentVersion(migrator)
	if err != nil {
		return err
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("migration_up_to_date", slog.Uint64("version", uint64(from)))
		return nil
	case err != nil:
		return fmt.Errorf("migration: up from version %d: %w", from, err)
	}

	to, err := currentVersion(migrator)
	if err != nil {
		return err
	}
	logger.Info("migration_applied", slog.Uint64("from_version", uint64(from)), slog.Uint64("to_version", uint64(to)))
	return nil
}

// currentVersion returns 0 for an empty database.
func currentVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migration: read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirty, version)
	}
	return version, nil
}

// SourceURL points golang-migrate at a directory of .sql files.
func SourceURL(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}

// Pgx5DSN rewrites a postgres:// or postgresql:// URL to the pgx5:// scheme
// registered by the golang-migrate pgx/v5 driver.
func Pgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// slogAdapter implements migrate.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Printf(format string, args ...any) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "migrate"))
}

func (a *slogAdapter) Verbose() bool {
	return a.logger.Enabled(context.Background(), slog.LevelDebug)
}
