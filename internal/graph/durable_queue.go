package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

// DurableQueue is an ActionQueue backed by the pending_actions table. It
// exists for deployments where queued actions must survive a process
// restart or be shared between agent replicas; single-process deployments
// use MemoryQueue.
type DurableQueue struct {
	store *db.Store
}

// NewDurableQueue creates a durable action queue over the given database.
func NewDurableQueue(store *db.Store) *DurableQueue {
	return &DurableQueue{store: store}
}

// insertActions appends the actions for the thread inside the given
// transaction, starting at the given position.
func insertActions(ctx context.Context, tx *sql.Tx, threadKey string,
	actions []reminder.Action, nextNode NodeName, startPos int64) error {

	now := time.Now().Unix()
	for i, action := range actions {
		payload, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to encode action: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pending_actions (idempotency_key,
				thread_key, position, payload_json,
				next_node, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), threadKey, startPos+int64(i),
			string(payload), string(nextNode), now)
		if err != nil {
			return fmt.Errorf("failed to queue action: %w", err)
		}
	}

	return nil
}

// selectActions reads the thread's queued actions in FIFO order inside the
// given transaction.
func selectActions(ctx context.Context, tx *sql.Tx,
	threadKey string) ([]reminder.Action, error) {

	rows, err := tx.QueryContext(ctx, `
		SELECT payload_json FROM pending_actions
		WHERE thread_key = ?
		ORDER BY position
	`, threadKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []reminder.Action
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var action reminder.Action
		if err := json.Unmarshal([]byte(payload), &action); err != nil {
			return nil, fmt.Errorf(
				"failed to decode action: %w", err,
			)
		}

		actions = append(actions, action)
	}

	return actions, rows.Err()
}

// Register implements ActionQueue.
func (q *DurableQueue) Register(ctx context.Context, threadKey string,
	actions []reminder.Action, nextNode NodeName) error {

	if len(actions) == 0 {
		return nil
	}

	threadKey = normalizeThreadKey(threadKey)

	return q.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var maxPos sql.NullInt64
		err := tx.QueryRowContext(ctx, `
			SELECT MAX(position) FROM pending_actions
			WHERE thread_key = ?
		`, threadKey).Scan(&maxPos)
		if err != nil {
			return err
		}

		startPos := int64(0)
		if maxPos.Valid {
			startPos = maxPos.Int64 + 1
		}

		// A fresh registration supersedes the resume pointer on any
		// rows already queued for the thread.
		_, err = tx.ExecContext(ctx, `
			UPDATE pending_actions SET next_node = ?
			WHERE thread_key = ?
		`, string(nextNode), threadKey)
		if err != nil {
			return err
		}

		return insertActions(
			ctx, tx, threadKey, actions, nextNode, startPos,
		)
	})
}

// Peek implements ActionQueue.
func (q *DurableQueue) Peek(ctx context.Context,
	threadKey string) ([]reminder.Action, error) {

	threadKey = normalizeThreadKey(threadKey)

	var actions []reminder.Action
	err := q.store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var err error
		actions, err = selectActions(ctx, tx, threadKey)
		return err
	})

	return actions, err
}

// Consume implements ActionQueue.
func (q *DurableQueue) Consume(ctx context.Context,
	threadKey string) ([]reminder.Action, error) {

	threadKey = normalizeThreadKey(threadKey)

	var actions []reminder.Action
	err := q.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var err error
		actions, err = selectActions(ctx, tx, threadKey)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM pending_actions WHERE thread_key = ?
		`, threadKey)
		return err
	})

	return actions, err
}

// NextNode implements ActionQueue.
func (q *DurableQueue) NextNode(ctx context.Context,
	threadKey string) (fn.Option[NodeName], error) {

	threadKey = normalizeThreadKey(threadKey)
	none := fn.None[NodeName]()

	var result fn.Option[NodeName]
	err := q.store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var node string
		err := tx.QueryRowContext(ctx, `
			SELECT next_node FROM pending_actions
			WHERE thread_key = ?
			ORDER BY position DESC
			LIMIT 1
		`, threadKey).Scan(&node)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = none
			return nil
		case err != nil:
			return err
		}

		result = fn.Some(NodeName(node))
		return nil
	})
	if err != nil {
		return none, err
	}

	return result, nil
}

// Replace implements ActionQueue.
func (q *DurableQueue) Replace(ctx context.Context, threadKey string,
	actions []reminder.Action, nextNode NodeName) error {

	threadKey = normalizeThreadKey(threadKey)

	return q.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		_, err := tx.ExecContext(ctx, `
			DELETE FROM pending_actions WHERE thread_key = ?
		`, threadKey)
		if err != nil {
			return err
		}

		if len(actions) == 0 {
			return nil
		}

		return insertActions(ctx, tx, threadKey, actions, nextNode, 0)
	})
}

// Clear implements ActionQueue.
func (q *DurableQueue) Clear(ctx context.Context, threadKey string) error {
	return q.Replace(ctx, threadKey, nil, "")
}

// Ensure DurableQueue implements ActionQueue at compile time.
var _ ActionQueue = (*DurableQueue)(nil)
