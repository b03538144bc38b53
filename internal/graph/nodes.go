package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

// defaultReason is attached to reminders created without an explicit
// reason.
const defaultReason = "Reminder created via graph node"

// defaultSubject is used for create actions that carry no subject.
const defaultSubject = "(no subject)"

// Nodes bundles the two reminder state-machine nodes with their
// collaborators: the durable reminder store and the pending-action queue.
type Nodes struct {
	store reminder.Store
	queue ActionQueue
	log   *slog.Logger
}

// NewNodes creates the reminder node pair.
func NewNodes(store reminder.Store, queue ActionQueue,
	log *slog.Logger) *Nodes {

	return &Nodes{
		store: store,
		queue: queue,
		log:   log,
	}
}

// partitionActions peeks the thread's queued actions and splits them into
// cancels and creates. Actions with an unknown kind are dropped.
func (n *Nodes) partitionActions(ctx context.Context,
	threadKey string) (cancels, creates []reminder.Action) {

	actions, err := n.queue.Peek(ctx, threadKey)
	if err != nil {
		n.log.Error("Failed to peek pending actions",
			"thread_key", threadKey, "error", err,
		)
		return nil, nil
	}

	for _, action := range actions {
		switch action.Kind {
		case reminder.ActionCancel:
			cancels = append(cancels, action)
		case reminder.ActionCreate:
			creates = append(creates, action)
		}
	}

	return cancels, creates
}

// resolveNextNode determines where to route once the queue drains: the
// queue's recorded pointer wins, then the state's reminder_next_node, then
// the response agent.
func (n *Nodes) resolveNextNode(ctx context.Context, threadKey string,
	state State) NodeName {

	recorded, err := n.queue.NextNode(ctx, threadKey)
	if err != nil {
		n.log.Error("Failed to read resume node",
			"thread_key", threadKey, "error", err,
		)
	} else if node := recorded.UnwrapOr(""); node != "" {
		return node
	}

	if node := nextNodeFromState(state); node != "" {
		return node
	}

	return NodeResponseAgent
}

// CancelReminderNode is the cancel phase of the reminder state machine. It
// applies any queued cancel actions against the store, re-queues the
// remaining create actions for the create phase, and computes the routing
// decision. Per-action failures are logged and skipped; the node always
// completes and routes somewhere.
func (n *Nodes) CancelReminderNode(ctx context.Context,
	state State) Command {

	threadKey := ThreadKey(state)
	cancels, creates := n.partitionActions(ctx, threadKey)
	nextNode := n.resolveNextNode(ctx, threadKey, state)

	if len(cancels) == 0 {
		target := nextNode
		if len(creates) > 0 {
			n.log.Info("Routing create action(s) to create node",
				"count", len(creates),
				"thread_key", threadKey,
			)
			target = NodeCreateReminder
		}

		return Command{
			Goto: target,
			Update: map[string]any{
				StateKeyNextNode: string(nextNode),
			},
		}
	}

	// Cancellations always run before creations are considered: a
	// superseding cancel must never race a stale create.
	for _, action := range cancels {
		if action.ThreadID == "" {
			n.log.Warn("Cancel action missing thread_id",
				"thread_key", threadKey,
			)
			continue
		}

		cancelled, err := n.store.CancelReminder(
			ctx, action.ThreadID,
		)
		switch {
		case err != nil:
			n.log.Error("Failed to cancel reminder",
				"thread_id", action.ThreadID, "error", err,
			)

		case cancelled > 0:
			n.log.Info("Cancelled reminder(s)",
				"count", cancelled,
				"thread_id", action.ThreadID,
			)

		default:
			n.log.Info("No active reminder to cancel",
				"thread_id", action.ThreadID,
			)
		}
	}

	// Re-queue whatever create work remains, carrying the resume
	// pointer forward, or drop the thread's queue entirely.
	if err := n.queue.Replace(
		ctx, threadKey, creates, nextNode,
	); err != nil {
		n.log.Error("Failed to re-queue create actions",
			"thread_key", threadKey, "error", err,
		)
	}

	target := nextNode
	if len(creates) > 0 {
		target = NodeCreateReminder
	}

	return Command{
		Goto: target,
		Update: map[string]any{
			StateKeyNextNode: string(nextNode),
		},
	}
}

// CreateReminderNode is the create phase of the reminder state machine. It
// drains the thread's queue, applies the create actions against the store
// and routes to the recorded resume node. The resume pointer is always
// cleared, and per-action failures are logged and skipped.
func (n *Nodes) CreateReminderNode(ctx context.Context,
	state State) Command {

	threadKey := ThreadKey(state)
	nextNode := n.resolveNextNode(ctx, threadKey, state)

	actions, err := n.queue.Consume(ctx, threadKey)
	if err != nil {
		n.log.Error("Failed to consume pending actions",
			"thread_key", threadKey, "error", err,
		)
	}

	var creates []reminder.Action
	for _, action := range actions {
		if action.Kind == reminder.ActionCreate {
			creates = append(creates, action)
		}
	}

	update := map[string]any{
		StateKeyNextNode: nil,
	}

	if len(creates) == 0 {
		n.log.Info("No create actions; forwarding",
			"next_node", string(nextNode),
		)
		return Command{Goto: nextNode, Update: update}
	}

	n.log.Info("Processing create action(s)", "count", len(creates))

	for _, action := range creates {
		if action.ThreadID == "" {
			n.log.Warn("Create action missing thread_id",
				"thread_key", threadKey,
			)
			continue
		}

		subject := action.Subject
		if subject == "" {
			subject = defaultSubject
		}

		reason := action.Reason
		if reason == "" {
			reason = defaultReason
		}

		dueAt := reminder.CoerceDueAt(n.log, action.DueAt)

		reminderID, err := n.store.AddReminder(
			ctx, action.ThreadID, subject, dueAt, reason,
		)
		if err != nil {
			n.log.Error("Failed to create reminder",
				"thread_id", action.ThreadID, "error", err,
			)
			continue
		}

		n.log.Info("Ensured reminder",
			"reminder_id", reminderID,
			"thread_id", action.ThreadID,
			"due_at", dueAt.Format(time.RFC3339),
		)
	}

	return Command{Goto: nextNode, Update: update}
}
