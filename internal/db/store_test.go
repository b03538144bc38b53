package db

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testLogger returns a logger that swallows all output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStore creates a temporary test database with migrations applied.
func testStore(t *testing.T) *SqliteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSqliteStore(&SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestNewSqliteStore(t *testing.T) {
	store := testStore(t)

	require.NotNil(t, store)
	require.NotNil(t, store.DB())
}

func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSqliteStore(&SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same database must not re-run migrations.
	store, err = NewSqliteStore(&SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestWithTx_Commit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (namespace, key, value, updated_at)
			VALUES ('ns', 'k', 'v', ?)
		`, time.Now().Unix())
		return err
	})
	require.NoError(t, err)

	var value string
	err = store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		return tx.QueryRowContext(ctx, `
			SELECT value FROM kv_entries
			WHERE namespace = 'ns' AND key = 'k'
		`).Scan(&value)
	})
	require.NoError(t, err)
	require.Equal(t, "v", value)
}

func TestWithTx_Rollback(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (namespace, key, value, updated_at)
			VALUES ('ns', 'rollback', 'v', ?)
		`, time.Now().Unix())
		if err != nil {
			return err
		}

		// Force rollback by returning an error.
		return sql.ErrNoRows
	})
	require.Error(t, err)

	err = store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var value string
		return tx.QueryRowContext(ctx, `
			SELECT value FROM kv_entries
			WHERE namespace = 'ns' AND key = 'rollback'
		`).Scan(&value)
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

// TestUniqueConstraintMapped asserts that violating the partial unique
// index on active reminders surfaces as a typed constraint error.
func TestUniqueConstraintMapped(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	insert := func() error {
		return store.WithTx(ctx, func(ctx context.Context,
			tx *sql.Tx) error {

			now := time.Now().Unix()
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reminders (thread_id, subject,
					due_at, reason, status, created_at,
					updated_at)
				VALUES ('t1', 's', ?, '', 'active', ?, ?)
			`, now, now, now)
			return err
		})
	}

	require.NoError(t, insert())

	err := insert()
	require.Error(t, err)
	require.True(t, IsUniqueConstraintError(err))
}

// TestUniqueConstraintScopedToActive asserts that the one-per-thread
// constraint only applies to active rows: cancelled history can pile up.
func TestUniqueConstraintScopedToActive(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	for _, status := range []string{"cancelled", "cancelled", "active"} {
		err := store.WithTx(ctx, func(ctx context.Context,
			tx *sql.Tx) error {

			_, err := tx.ExecContext(ctx, `
				INSERT INTO reminders (thread_id, subject,
					due_at, reason, status, created_at,
					updated_at)
				VALUES ('t1', 's', ?, '', ?, ?, ?)
			`, now, status, now, now)
			return err
		})
		require.NoError(t, err)
	}
}
