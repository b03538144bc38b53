package db

import (
	"fmt"
	"log/slog"
)

// SqliteConfig holds the configuration for the sqlite backed store.
type SqliteConfig struct {
	// DatabaseFileName is the full path of the database file, or
	// MemoryPath for an in-memory database.
	DatabaseFileName string

	// SkipMigrations skips applying migrations on startup. Intended for
	// inspection tooling that must not mutate the schema.
	SkipMigrations bool
}

// SqliteStore is a sqlite implementation of the transactional store with
// schema migrations applied on construction.
type SqliteStore struct {
	*Store

	cfg *SqliteConfig
}

// NewSqliteStore opens the database at the configured path, applies any
// pending schema migrations and returns the ready-to-use store. This is the
// explicit setup step: construction-time errors (unreadable file, dirty
// migration state, downgrade) are the only errors this package allows to
// propagate to callers at startup.
func NewSqliteStore(cfg *SqliteConfig, log *slog.Logger) (*SqliteStore,
	error) {

	sqlDB, err := OpenSQLite(cfg.DatabaseFileName)
	if err != nil {
		return nil, err
	}

	store := &SqliteStore{
		Store: NewStore(sqlDB, log),
		cfg:   cfg,
	}

	if !cfg.SkipMigrations {
		if err := store.applySchemaMigrations(log); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	return store, nil
}

// applySchemaMigrations brings the database schema up to the latest
// migration version.
func (s *SqliteStore) applySchemaMigrations(log *slog.Logger) error {
	driver, err := newSqliteMigrationDriver(s.Store)
	if err != nil {
		return err
	}

	err = applyMigrations(
		sqlSchemas, driver, "migrations", "reminders",
		TargetLatest, log,
	)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
