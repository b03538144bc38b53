package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
)

// newTestStore creates a SQL-backed reminder store over a temporary
// database.
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		sqliteStore.Close()
	})

	return NewSQLStore(sqliteStore.Store, testLogger())
}

func TestAddReminder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	id, err := store.AddReminder(
		ctx, "thread-1", "Re: quarterly report", dueAt, "Needs reply",
	)
	require.NoError(t, err)
	require.NotZero(t, id)

	active, err := store.ActiveForThread(ctx, "thread-1")
	require.NoError(t, err)
	require.True(t, active.IsSome())

	active.WhenSome(func(r Reminder) {
		require.Equal(t, id, r.ID)
		require.Equal(t, "Re: quarterly report", r.Subject)
		require.Equal(t, "Needs reply", r.Reason)
		require.Equal(t, StatusActive, r.Status)
		require.True(t, r.DueAt.Equal(dueAt))
	})
}

func TestAddReminderIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC()

	first, err := store.AddReminder(ctx, "thread-1", "subj", dueAt, "r")
	require.NoError(t, err)

	second, err := store.AddReminder(ctx, "thread-1", "subj", dueAt, "r")
	require.NoError(t, err)
	require.Equal(t, first, second)

	active, err := store.IterActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

// TestAddReminderExistingDifferentFields pins the get-or-create contract:
// a second create for the same thread returns the existing reminder's id
// untouched, even when the new request carries a different subject and due
// time.
func TestAddReminderExistingDifferentFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	first, err := store.AddReminder(
		ctx, "thread-1", "original subject", dueAt, "original",
	)
	require.NoError(t, err)

	second, err := store.AddReminder(
		ctx, "thread-1", "different subject",
		dueAt.Add(48*time.Hour), "different",
	)
	require.NoError(t, err)
	require.Equal(t, first, second)

	active, err := store.ActiveForThread(ctx, "thread-1")
	require.NoError(t, err)

	active.WhenSome(func(r Reminder) {
		require.Equal(t, "original subject", r.Subject)
		require.True(t, r.DueAt.Equal(dueAt))
	})
}

func TestAddReminderValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(time.Hour)

	_, err := store.AddReminder(ctx, "", "subj", dueAt, "")
	require.ErrorIs(t, err, ErrEmptyThreadID)

	_, err = store.AddReminder(ctx, "thread-1", "", dueAt, "")
	require.ErrorIs(t, err, ErrEmptySubject)
}

func TestAddReminderAfterCancel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC()

	first, err := store.AddReminder(ctx, "thread-1", "subj", dueAt, "")
	require.NoError(t, err)

	cancelled, err := store.CancelReminder(ctx, "thread-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, cancelled)

	// The thread is free for a new reminder once the old one is
	// cancelled.
	second, err := store.AddReminder(ctx, "thread-1", "subj2", dueAt, "")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestCancelReminderNoActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cancelled, err := store.CancelReminder(ctx, "missing-thread")
	require.NoError(t, err)
	require.Zero(t, cancelled)
}

func TestGetDueReminders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()

	_, err := store.AddReminder(
		ctx, "overdue", "s", now.Add(-2*time.Hour), "",
	)
	require.NoError(t, err)

	_, err = store.AddReminder(
		ctx, "just-due", "s", now.Add(-time.Minute), "",
	)
	require.NoError(t, err)

	_, err = store.AddReminder(
		ctx, "future", "s", now.Add(24*time.Hour), "",
	)
	require.NoError(t, err)

	due, err := store.GetDueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Ordered by due time, oldest first.
	require.Equal(t, "overdue", due[0].ThreadID)
	require.Equal(t, "just-due", due[1].ThreadID)
}

func TestMarkCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddReminder(
		ctx, "thread-1", "s", time.Now().Add(-time.Hour), "",
	)
	require.NoError(t, err)

	require.NoError(t, store.MarkCompleted(ctx, id))

	// Completed reminders are no longer due or active.
	due, err := store.GetDueReminders(ctx)
	require.NoError(t, err)
	require.Empty(t, due)

	active, err := store.ActiveForThread(ctx, "thread-1")
	require.NoError(t, err)
	require.False(t, active.IsSome())

	// Completing twice fails: the row is no longer active.
	require.ErrorIs(t, store.MarkCompleted(ctx, id), ErrReminderNotFound)
}

func TestMarkCompletedMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.MarkCompleted(context.Background(), 9999)
	require.ErrorIs(t, err, ErrReminderNotFound)
}

func TestApplyActions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC()

	_, err := store.AddReminder(ctx, "old-thread", "s", dueAt, "")
	require.NoError(t, err)

	result, err := store.ApplyActions(ctx, []Action{
		{Kind: ActionCancel, ThreadID: "old-thread"},
		{
			Kind:     ActionCreate,
			ThreadID: "new-thread",
			Subject:  "follow up",
			DueAt:    dueAt.Format(time.RFC3339),
		},
	})
	require.NoError(t, err)

	require.EqualValues(t, 1, result.Cancelled["old-thread"])
	require.NotZero(t, result.Created["new-thread"])
	require.Len(t, result.Outcomes, 2)
	require.NoError(t, result.Outcomes[0].Err)
	require.NoError(t, result.Outcomes[1].Err)

	active, err := store.IterActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "new-thread", active[0].ThreadID)
}

// TestApplyActionsPartialFailure asserts that one bad action does not
// abort the rest of the batch.
func TestApplyActionsPartialFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dueAt := time.Now().Add(24 * time.Hour).UTC()

	result, err := store.ApplyActions(ctx, []Action{
		// Missing thread id: skipped with an error outcome.
		{Kind: ActionCreate, Subject: "s", DueAt: dueAt},
		// Unknown kind: skipped.
		{Kind: ActionKind("snooze"), ThreadID: "t"},
		// Valid create still lands.
		{
			Kind:     ActionCreate,
			ThreadID: "good-thread",
			Subject:  "s",
			DueAt:    dueAt,
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)

	require.ErrorIs(t, result.Outcomes[0].Err, ErrEmptyThreadID)
	require.ErrorIs(t, result.Outcomes[1].Err, ErrUnknownActionKind)
	require.NoError(t, result.Outcomes[2].Err)

	active, err := store.IterActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "good-thread", active[0].ThreadID)
}
