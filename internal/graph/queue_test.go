package graph

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDurableQueue(t *testing.T) *DurableQueue {
	t.Helper()

	sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: filepath.Join(t.TempDir(), "test.db"),
	}, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		sqliteStore.Close()
	})

	return NewDurableQueue(sqliteStore.Store)
}

// queueImpls runs a subtest against each ActionQueue implementation; both
// must behave identically.
func queueImpls(t *testing.T, run func(t *testing.T, q ActionQueue)) {
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryQueue())
	})
	t.Run("durable", func(t *testing.T) {
		run(t, newDurableQueue(t))
	})
}

func TestQueueRegisterPeekConsume(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		actions := []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
			{
				Kind:     reminder.ActionCreate,
				ThreadID: "t1",
				Subject:  "follow up",
				DueAt:    "2026-09-01T10:00:00Z",
			},
		}

		err := q.Register(ctx, "key-1", actions, NodeResponseAgent)
		require.NoError(t, err)

		// Peek returns the actions in registration order without
		// draining.
		peeked, err := q.Peek(ctx, "key-1")
		require.NoError(t, err)
		require.Equal(t, actions, peeked)

		peeked, err = q.Peek(ctx, "key-1")
		require.NoError(t, err)
		require.Len(t, peeked, 2)

		node, err := q.NextNode(ctx, "key-1")
		require.NoError(t, err)
		require.Equal(t, NodeResponseAgent,
			node.UnwrapOr(NodeName("")))

		// Consume drains actions and resume pointer together.
		consumed, err := q.Consume(ctx, "key-1")
		require.NoError(t, err)
		require.Equal(t, actions, consumed)

		peeked, err = q.Peek(ctx, "key-1")
		require.NoError(t, err)
		require.Empty(t, peeked)

		node, err = q.NextNode(ctx, "key-1")
		require.NoError(t, err)
		require.False(t, node.IsSome())
	})
}

func TestQueueRegisterAppends(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		err := q.Register(ctx, "k", []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
		}, NodeEnd)
		require.NoError(t, err)

		err = q.Register(ctx, "k", []reminder.Action{
			{Kind: reminder.ActionCreate, ThreadID: "t1",
				Subject: "s"},
		}, NodeResponseAgent)
		require.NoError(t, err)

		peeked, err := q.Peek(ctx, "k")
		require.NoError(t, err)
		require.Len(t, peeked, 2)
		require.Equal(t, reminder.ActionCancel, peeked[0].Kind)
		require.Equal(t, reminder.ActionCreate, peeked[1].Kind)

		// The most recent registration owns the resume pointer.
		node, err := q.NextNode(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, NodeResponseAgent,
			node.UnwrapOr(NodeName("")))
	})
}

func TestQueueRegisterEmptyIsNoop(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		require.NoError(t, q.Register(ctx, "k", nil, NodeEnd))

		node, err := q.NextNode(ctx, "k")
		require.NoError(t, err)
		require.False(t, node.IsSome())
	})
}

func TestQueueThreadIsolation(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		err := q.Register(ctx, "a", []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
		}, NodeEnd)
		require.NoError(t, err)

		err = q.Register(ctx, "b", []reminder.Action{
			{Kind: reminder.ActionCreate, ThreadID: "t2",
				Subject: "s"},
		}, NodeResponseAgent)
		require.NoError(t, err)

		consumed, err := q.Consume(ctx, "a")
		require.NoError(t, err)
		require.Len(t, consumed, 1)

		// Key b is untouched.
		peeked, err := q.Peek(ctx, "b")
		require.NoError(t, err)
		require.Len(t, peeked, 1)
	})
}

func TestQueueEmptyKeyUsesDefault(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		err := q.Register(ctx, "", []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
		}, NodeEnd)
		require.NoError(t, err)

		peeked, err := q.Peek(ctx, DefaultThreadKey)
		require.NoError(t, err)
		require.Len(t, peeked, 1)
	})
}

func TestQueueReplace(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		err := q.Register(ctx, "k", []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
			{Kind: reminder.ActionCreate, ThreadID: "t1",
				Subject: "s"},
		}, NodeEnd)
		require.NoError(t, err)

		creates := []reminder.Action{
			{Kind: reminder.ActionCreate, ThreadID: "t1",
				Subject: "s"},
		}
		require.NoError(t, q.Replace(ctx, "k", creates, NodeEnd))

		peeked, err := q.Peek(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, creates, peeked)

		node, err := q.NextNode(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, NodeEnd, node.UnwrapOr(NodeName("")))

		// Replacing with an empty set clears everything.
		require.NoError(t, q.Replace(ctx, "k", nil, NodeEnd))

		node, err = q.NextNode(ctx, "k")
		require.NoError(t, err)
		require.False(t, node.IsSome())
	})
}

func TestQueueClear(t *testing.T) {
	queueImpls(t, func(t *testing.T, q ActionQueue) {
		ctx := context.Background()

		err := q.Register(ctx, "k", []reminder.Action{
			{Kind: reminder.ActionCancel, ThreadID: "t1"},
		}, NodeEnd)
		require.NoError(t, err)

		require.NoError(t, q.Clear(ctx, "k"))

		peeked, err := q.Peek(ctx, "k")
		require.NoError(t, err)
		require.Empty(t, peeked)

		node, err := q.NextNode(ctx, "k")
		require.NoError(t, err)
		require.False(t, node.IsSome())
	})
}

// TestDurableQueueSurvivesReopen asserts that queued actions outlive the
// process by reopening the database.
func TestDurableQueueSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)

	q := NewDurableQueue(sqliteStore.Store)
	err = q.Register(ctx, "k", []reminder.Action{
		{Kind: reminder.ActionCreate, ThreadID: "t1", Subject: "s",
			DueAt: "2026-09-01T10:00:00Z"},
	}, NodeResponseAgent)
	require.NoError(t, err)
	require.NoError(t, sqliteStore.Close())

	sqliteStore, err = db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: dbPath,
	}, testLogger())
	require.NoError(t, err)
	defer sqliteStore.Close()

	q = NewDurableQueue(sqliteStore.Store)

	peeked, err := q.Peek(ctx, "k")
	require.NoError(t, err)
	require.Len(t, peeked, 1)
	require.Equal(t, "t1", peeked[0].ThreadID)

	node, err := q.NextNode(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, NodeResponseAgent, node.UnwrapOr(NodeName("")))
}
