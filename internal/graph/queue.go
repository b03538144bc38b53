package graph

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

// ActionQueue holds reminder actions registered by one graph turn until a
// later turn drains them, together with the node to resume at once the
// queue is empty. It is an injected collaborator rather than process
// globals so separate agent instances and test runs never share state.
//
// Every registration must eventually be matched by a Consume or Clear on
// the same thread key; the nodes guarantee this across the cancel/create
// phases.
type ActionQueue interface {
	// Register appends actions for the thread and records the node to
	// route to after they drain. An empty thread key maps to
	// DefaultThreadKey; an empty action list is a no-op.
	Register(ctx context.Context, threadKey string,
		actions []reminder.Action, nextNode NodeName) error

	// Peek returns the thread's queued actions without removing them.
	Peek(ctx context.Context,
		threadKey string) ([]reminder.Action, error)

	// Consume removes and returns the thread's queued actions, clearing
	// the resume-node pointer along with them.
	Consume(ctx context.Context,
		threadKey string) ([]reminder.Action, error)

	// NextNode returns the recorded resume node for the thread, if any.
	NextNode(ctx context.Context,
		threadKey string) (fn.Option[NodeName], error)

	// Replace swaps the thread's queued actions with the given set,
	// carrying the resume-node pointer forward. Used by the cancel
	// phase to re-queue the remaining create actions.
	Replace(ctx context.Context, threadKey string,
		actions []reminder.Action, nextNode NodeName) error

	// Clear drops the thread's queued actions and resume-node pointer.
	Clear(ctx context.Context, threadKey string) error
}

// normalizeThreadKey applies the default-key sentinel.
func normalizeThreadKey(threadKey string) string {
	if threadKey == "" {
		return DefaultThreadKey
	}
	return threadKey
}

// MemoryQueue is the process-local ActionQueue used when a single agent
// process owns all conversation threads.
type MemoryQueue struct {
	mu sync.Mutex

	actions  map[string][]reminder.Action
	nextNode map[string]NodeName
}

// NewMemoryQueue creates an empty in-process action queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		actions:  make(map[string][]reminder.Action),
		nextNode: make(map[string]NodeName),
	}
}

// Register implements ActionQueue.
func (q *MemoryQueue) Register(_ context.Context, threadKey string,
	actions []reminder.Action, nextNode NodeName) error {

	if len(actions) == 0 {
		return nil
	}

	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.actions[threadKey] = append(q.actions[threadKey], actions...)
	q.nextNode[threadKey] = nextNode

	return nil
}

// Peek implements ActionQueue.
func (q *MemoryQueue) Peek(_ context.Context,
	threadKey string) ([]reminder.Action, error) {

	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	queued := q.actions[threadKey]
	out := make([]reminder.Action, len(queued))
	copy(out, queued)

	return out, nil
}

// Consume implements ActionQueue.
func (q *MemoryQueue) Consume(_ context.Context,
	threadKey string) ([]reminder.Action, error) {

	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	queued := q.actions[threadKey]
	delete(q.actions, threadKey)
	delete(q.nextNode, threadKey)

	return queued, nil
}

// NextNode implements ActionQueue.
func (q *MemoryQueue) NextNode(_ context.Context,
	threadKey string) (fn.Option[NodeName], error) {

	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	node, ok := q.nextNode[threadKey]
	if !ok {
		return fn.None[NodeName](), nil
	}

	return fn.Some(node), nil
}

// Replace implements ActionQueue.
func (q *MemoryQueue) Replace(_ context.Context, threadKey string,
	actions []reminder.Action, nextNode NodeName) error {

	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(actions) == 0 {
		delete(q.actions, threadKey)
		delete(q.nextNode, threadKey)
		return nil
	}

	queued := make([]reminder.Action, len(actions))
	copy(queued, actions)

	q.actions[threadKey] = queued
	q.nextNode[threadKey] = nextNode

	return nil
}

// Clear implements ActionQueue.
func (q *MemoryQueue) Clear(_ context.Context, threadKey string) error {
	threadKey = normalizeThreadKey(threadKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.actions, threadKey)
	delete(q.nextNode, threadKey)

	return nil
}

// Ensure MemoryQueue implements ActionQueue at compile time.
var _ ActionQueue = (*MemoryQueue)(nil)
