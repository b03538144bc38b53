package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
)

// SQLStore implements Store on top of the shared sqlite transaction
// machinery.
type SQLStore struct {
	store *db.Store
	log   *slog.Logger
}

// NewSQLStore creates a reminder store backed by the given database.
func NewSQLStore(store *db.Store, log *slog.Logger) *SQLStore {
	return &SQLStore{
		store: store,
		log:   log,
	}
}

// reminderColumns is the canonical column list scanned by rowToReminder.
const reminderColumns = `id, thread_id, subject, due_at, reason, status,
	created_at, updated_at`

// rowScanner abstracts sql.Row and sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// rowToReminder scans one reminders row into the domain type.
func rowToReminder(row rowScanner) (Reminder, error) {
	var (
		r         Reminder
		dueAt     int64
		status    string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&r.ID, &r.ThreadID, &r.Subject, &dueAt, &r.Reason, &status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return Reminder{}, err
	}

	r.DueAt = time.Unix(dueAt, 0).UTC()
	r.Status = Status(status)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return r, nil
}

// activeIDForThread returns the id of the thread's active reminder within
// the given transaction, or false if none exists.
func activeIDForThread(ctx context.Context, tx *sql.Tx,
	threadID string) (int64, bool, error) {

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM reminders
		WHERE thread_id = ? AND status = 'active'
	`, threadID).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}

	return id, true, nil
}

// AddReminder ensures an active reminder exists for the thread and returns
// its id. The one-active-per-thread invariant is backed by a partial unique
// index, so a concurrent duplicate insert loses cleanly: we catch the
// unique constraint violation and re-read the winner's id instead of
// locking up front.
func (s *SQLStore) AddReminder(ctx context.Context, threadID,
	subject string, dueAt time.Time, reason string) (int64, error) {

	if threadID == "" {
		return 0, ErrEmptyThreadID
	}
	if subject == "" {
		return 0, ErrEmptySubject
	}

	dueAt = dueAt.UTC()

	var reminderID int64
	err := s.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		// Get-or-create: an existing active reminder for the thread
		// short-circuits the insert.
		id, ok, err := activeIDForThread(ctx, tx, threadID)
		if err != nil {
			return fmt.Errorf(
				"failed to query active reminder: %w", err,
			)
		}
		if ok {
			reminderID = id
			return nil
		}

		now := time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reminders (thread_id, subject, due_at,
				reason, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, 'active', ?, ?)
		`, threadID, subject, dueAt.Unix(), reason, now, now)
		if err != nil {
			return err
		}

		reminderID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf(
				"failed to get reminder id: %w", err,
			)
		}

		return nil
	})

	// A unique constraint violation means another process created the
	// active reminder between our read and write. The existing row is
	// the answer.
	if db.IsUniqueConstraintError(err) {
		existing, lookupErr := s.ActiveForThread(ctx, threadID)
		if lookupErr != nil {
			return 0, lookupErr
		}

		var id int64
		existing.WhenSome(func(r Reminder) {
			id = r.ID
		})
		if id != 0 {
			return id, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add reminder: %w", err)
	}

	return reminderID, nil
}

// CancelReminder transitions all active reminders for the thread to
// cancelled, returning the number of rows affected. A thread with no active
// reminder yields 0, not an error.
func (s *SQLStore) CancelReminder(ctx context.Context,
	threadID string) (int64, error) {

	if threadID == "" {
		return 0, ErrEmptyThreadID
	}

	var cancelled int64
	err := s.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		res, err := tx.ExecContext(ctx, `
			UPDATE reminders
			SET status = 'cancelled', updated_at = ?
			WHERE thread_id = ? AND status = 'active'
		`, time.Now().Unix(), threadID)
		if err != nil {
			return err
		}

		cancelled, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cancel reminder: %w", err)
	}

	return cancelled, nil
}

// GetDueReminders returns all active reminders whose due time has passed,
// ordered by due time.
func (s *SQLStore) GetDueReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'active' AND due_at <= ?
		ORDER BY due_at
	`, time.Now().UTC().Unix())
}

// ActiveForThread returns the active reminder for the thread, if any.
func (s *SQLStore) ActiveForThread(ctx context.Context,
	threadID string) (fn.Option[Reminder], error) {

	none := fn.None[Reminder]()

	if threadID == "" {
		return none, ErrEmptyThreadID
	}

	var result fn.Option[Reminder]
	err := s.store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		row := tx.QueryRowContext(ctx, `
			SELECT `+reminderColumns+`
			FROM reminders
			WHERE thread_id = ? AND status = 'active'
		`, threadID)

		r, err := rowToReminder(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = none
			return nil
		case err != nil:
			return err
		}

		result = fn.Some(r)
		return nil
	})
	if err != nil {
		return none, fmt.Errorf(
			"failed to get active reminder: %w", err,
		)
	}

	return result, nil
}

// IterActive returns a snapshot of all currently active reminders.
func (s *SQLStore) IterActive(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'active'
		ORDER BY due_at
	`)
}

// MarkCompleted transitions an active reminder to completed once its
// notification has been delivered.
func (s *SQLStore) MarkCompleted(ctx context.Context, id int64) error {
	var affected int64
	err := s.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		res, err := tx.ExecContext(ctx, `
			UPDATE reminders
			SET status = 'completed', updated_at = ?
			WHERE id = ? AND status = 'active'
		`, time.Now().Unix(), id)
		if err != nil {
			return err
		}

		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf(
			"failed to mark reminder completed: %w", err,
		)
	}

	if affected == 0 {
		return ErrReminderNotFound
	}

	return nil
}

// ApplyActions applies a mixed batch of cancel/create actions in batch
// order. Each action runs in its own transaction so one failure cannot
// abort the rest; skipped actions are recorded in the result outcomes.
func (s *SQLStore) ApplyActions(ctx context.Context,
	actions []Action) (ApplyResult, error) {

	result := ApplyResult{
		Cancelled: make(map[string]int64),
		Created:   make(map[string]int64),
	}

	for _, action := range actions {
		outcome := ActionOutcome{Action: action}

		switch action.Kind {
		case ActionCancel:
			count, err := s.CancelReminder(ctx, action.ThreadID)
			if err != nil {
				s.log.Error("Failed to apply cancel action",
					"thread_id", action.ThreadID,
					"error", err,
				)
				outcome.Err = err
				break
			}

			outcome.CancelledCount = count
			result.Cancelled[action.ThreadID] = count

		case ActionCreate:
			dueAt := CoerceDueAt(s.log, action.DueAt)
			id, err := s.AddReminder(
				ctx, action.ThreadID, action.Subject,
				dueAt, action.Reason,
			)
			if err != nil {
				s.log.Error("Failed to apply create action",
					"thread_id", action.ThreadID,
					"error", err,
				)
				outcome.Err = err
				break
			}

			outcome.CreatedID = id
			result.Created[action.ThreadID] = id

		default:
			s.log.Warn("Skipping action with unknown kind",
				"kind", string(action.Kind),
				"thread_id", action.ThreadID,
			)
			outcome.Err = ErrUnknownActionKind
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

// queryReminders runs a read-only reminder query and scans all rows.
func (s *SQLStore) queryReminders(ctx context.Context, query string,
	args ...any) ([]Reminder, error) {

	var reminders []Reminder
	err := s.store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := rowToReminder(rows)
			if err != nil {
				return fmt.Errorf(
					"failed to scan reminder: %w", err,
				)
			}
			reminders = append(reminders, r)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}

	return reminders, nil
}

// Ensure SQLStore implements Store at compile time.
var _ Store = (*SQLStore)(nil)
