package reminder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
)

// TestStoreEquivalence drives random add/cancel sequences through both the
// SQL-backed store and the in-memory mock and asserts they stay in
// lockstep, including the at-most-one-active-per-thread invariant.
func TestStoreEquivalence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tmpDir, err := os.MkdirTemp("", "reminders-rapid-*")
		require.NoError(rt, err)
		defer os.RemoveAll(tmpDir)

		sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
			DatabaseFileName: filepath.Join(tmpDir, "test.db"),
		}, testLogger())
		require.NoError(rt, err)
		defer sqliteStore.Close()

		sqlStore := NewSQLStore(sqliteStore.Store, testLogger())
		mock := NewMockStore()

		ctx := context.Background()
		threads := []string{"thread-a", "thread-b", "thread-c"}

		numOps := rapid.IntRange(1, 25).Draw(rt, "num_ops")
		for i := 0; i < numOps; i++ {
			thread := rapid.SampledFrom(threads).Draw(rt, "thread")

			if rapid.Bool().Draw(rt, "cancel") {
				gotSQL, err := sqlStore.CancelReminder(
					ctx, thread,
				)
				require.NoError(rt, err)

				gotMock, err := mock.CancelReminder(ctx, thread)
				require.NoError(rt, err)

				require.Equal(rt, gotMock, gotSQL)
			} else {
				hours := rapid.IntRange(-48, 48).Draw(
					rt, "due_hours",
				)
				dueAt := time.Now().UTC().Add(
					time.Duration(hours) * time.Hour,
				)

				idSQL, err := sqlStore.AddReminder(
					ctx, thread, "subject", dueAt, "",
				)
				require.NoError(rt, err)

				idMock, err := mock.AddReminder(
					ctx, thread, "subject", dueAt, "",
				)
				require.NoError(rt, err)

				require.Equal(rt, idMock, idSQL)
			}

			// The stores must agree on the set of active threads,
			// and no thread may ever hold more than one active
			// reminder.
			activeSQL, err := sqlStore.IterActive(ctx)
			require.NoError(rt, err)

			activeMock, err := mock.IterActive(ctx)
			require.NoError(rt, err)

			require.Equal(rt, len(activeMock), len(activeSQL))

			seen := make(map[string]bool)
			for _, r := range activeSQL {
				require.False(rt, seen[r.ThreadID],
					"thread %s has multiple active "+
						"reminders", r.ThreadID)
				seen[r.ThreadID] = true
			}
		}
	})
}
