package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
	"github.com/Kbediako/Ambient-Email-Agent/internal/reputation"
)

// commandLogger builds the logger used by CLI commands. Output goes to
// stderr so json-formatted results stay clean on stdout.
func commandLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// getSqliteStore opens the database (applying migrations) and returns it
// with the command logger.
func getSqliteStore() (*db.SqliteStore, *slog.Logger, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}

	logger := commandLogger()

	store, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: path,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"failed to open database: %w", err,
		)
	}

	return store, logger, nil
}

// getReminderStore opens the reminder store for a command invocation. The
// returned closer releases the underlying database handle.
func getReminderStore() (reminder.Store, *slog.Logger, func() error,
	error) {

	sqliteStore, logger, err := getSqliteStore()
	if err != nil {
		return nil, nil, nil, err
	}

	store := reminder.NewSQLStore(sqliteStore.Store, logger)

	return store, logger, sqliteStore.Close, nil
}

// getReputationGate opens the sender reputation gate for a command
// invocation.
func getReputationGate() (*reputation.Gate, func() error, error) {
	sqliteStore, logger, err := getSqliteStore()
	if err != nil {
		return nil, nil, err
	}

	kv := reputation.NewSQLKVStore(sqliteStore.Store)
	gate := reputation.NewGate(kv, logger)

	return gate, sqliteStore.Close, nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReminders renders reminders in the selected output format.
func printReminders(w io.Writer, reminders []reminder.Reminder) error {
	if outputFormat == "json" {
		return outputJSON(reminders)
	}

	if len(reminders) == 0 {
		fmt.Fprintln(w, "No reminders.")
		return nil
	}

	for _, r := range reminders {
		fmt.Fprintf(w, "[%d] %s\n    thread=%s due=%s status=%s\n",
			r.ID, r.Subject, r.ThreadID,
			r.DueAt.Format("2006-01-02 15:04 MST"), r.Status,
		)
		if r.Reason != "" {
			fmt.Fprintf(w, "    reason: %s\n", r.Reason)
		}
	}

	return nil
}
