package reminder

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Store is the durable reminder store shared by the interactive agent and
// the delivery worker. Implementations must be safe for concurrent use from
// multiple processes.
type Store interface {
	// AddReminder ensures an active reminder exists for the thread and
	// returns its id. The call is idempotent: if the thread already has
	// an active reminder, the existing id is returned and no new row is
	// created, even under concurrent duplicate calls.
	AddReminder(ctx context.Context, threadID, subject string,
		dueAt time.Time, reason string) (int64, error)

	// CancelReminder transitions all active reminders for the thread to
	// cancelled and returns the number of rows affected. Cancelling a
	// thread with no active reminder is a no-op returning 0.
	CancelReminder(ctx context.Context, threadID string) (int64, error)

	// GetDueReminders returns all active reminders whose due time has
	// passed, for consumption by the delivery worker.
	GetDueReminders(ctx context.Context) ([]Reminder, error)

	// ActiveForThread returns the active reminder for the thread, if
	// any.
	ActiveForThread(ctx context.Context,
		threadID string) (fn.Option[Reminder], error)

	// IterActive returns a snapshot of all currently active reminders
	// ordered by due time.
	IterActive(ctx context.Context) ([]Reminder, error)

	// MarkCompleted transitions an active reminder to completed after
	// its notification has been delivered.
	MarkCompleted(ctx context.Context, id int64) error

	// ApplyActions applies a mixed batch of cancel/create actions in
	// batch order. Each action either fully applies or is recorded as
	// skipped in the result; one action's failure never aborts the
	// batch.
	ApplyActions(ctx context.Context,
		actions []Action) (ApplyResult, error)
}
