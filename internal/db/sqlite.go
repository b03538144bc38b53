package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath is the special path that opens a private in-memory database.
// Used by tests and the CLI dry-run mode.
const MemoryPath = ":memory:"

// DefaultDBPath returns the default path for the reminder database.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".ambient-email-agent", "reminders.db"), nil
}

// OpenSQLite opens a SQLite database connection with WAL mode enabled and
// appropriate pragmas for performance and reliability. The WAL journal mode
// plus busy timeout is what lets the interactive agent process and the
// delivery worker share the file without blocking each other.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	var dsn string
	if dbPath == MemoryPath {
		// In-memory databases need a shared cache so every connection
		// in the pool sees the same tables.
		dsn = "file::memory:?mode=memory&cache=shared&_foreign_keys=on"
	} else {
		// Ensure the directory exists.
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database "+
				"directory: %w", err)
		}

		dsn = fmt.Sprintf(
			"file:%s?_foreign_keys=on&_journal_mode=WAL"+
				"&_busy_timeout=5000",
			dbPath,
		)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer, multiple
	// readers).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Verify connection and apply additional pragmas.
	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	return db, nil
}

// configurePragmas sets additional SQLite pragmas for optimal performance.
func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		// Synchronous mode: NORMAL provides good durability with
		// better performance than FULL.
		"PRAGMA synchronous = NORMAL",

		// Cache size: Negative value is in KiB, 64MB cache.
		"PRAGMA cache_size = -65536",

		// Temp store: Keep temporary tables in memory.
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf(
				"failed to execute %q: %w", pragma, err,
			)
		}
	}

	return nil
}
