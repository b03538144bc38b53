package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// MockStore is an in-memory implementation of Store for tests. It mirrors
// the SQL store's semantics, including idempotent creation and the
// one-active-per-thread invariant.
type MockStore struct {
	mu sync.Mutex

	reminders map[int64]*Reminder
	nextID    int64

	log *slog.Logger
}

// NewMockStore creates a new empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		reminders: make(map[int64]*Reminder),
		nextID:    1,
		log:       slog.Default(),
	}
}

// activeForThreadLocked returns the active reminder for the thread. The
// caller must hold the mutex.
func (m *MockStore) activeForThreadLocked(threadID string) *Reminder {
	for _, r := range m.reminders {
		if r.ThreadID == threadID && r.Status == StatusActive {
			return r
		}
	}
	return nil
}

// AddReminder implements Store.
func (m *MockStore) AddReminder(_ context.Context, threadID,
	subject string, dueAt time.Time, reason string) (int64, error) {

	if threadID == "" {
		return 0, ErrEmptyThreadID
	}
	if subject == "" {
		return 0, ErrEmptySubject
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.activeForThreadLocked(threadID); existing != nil {
		return existing.ID, nil
	}

	now := time.Now().UTC()
	r := &Reminder{
		ID:        m.nextID,
		ThreadID:  threadID,
		Subject:   subject,
		DueAt:     dueAt.UTC(),
		Reason:    reason,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.reminders[r.ID] = r

	return r.ID, nil
}

// CancelReminder implements Store.
func (m *MockStore) CancelReminder(_ context.Context,
	threadID string) (int64, error) {

	if threadID == "" {
		return 0, ErrEmptyThreadID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var cancelled int64
	for _, r := range m.reminders {
		if r.ThreadID == threadID && r.Status == StatusActive {
			r.Status = StatusCancelled
			r.UpdatedAt = time.Now().UTC()
			cancelled++
		}
	}

	return cancelled, nil
}

// GetDueReminders implements Store.
func (m *MockStore) GetDueReminders(_ context.Context) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var due []Reminder
	for _, r := range m.reminders {
		if r.Status == StatusActive && !r.DueAt.After(now) {
			due = append(due, *r)
		}
	}

	return due, nil
}

// ActiveForThread implements Store.
func (m *MockStore) ActiveForThread(_ context.Context,
	threadID string) (fn.Option[Reminder], error) {

	if threadID == "" {
		return fn.None[Reminder](), ErrEmptyThreadID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.activeForThreadLocked(threadID); r != nil {
		return fn.Some(*r), nil
	}

	return fn.None[Reminder](), nil
}

// IterActive implements Store.
func (m *MockStore) IterActive(_ context.Context) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []Reminder
	for _, r := range m.reminders {
		if r.Status == StatusActive {
			active = append(active, *r)
		}
	}

	return active, nil
}

// MarkCompleted implements Store.
func (m *MockStore) MarkCompleted(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok || r.Status != StatusActive {
		return ErrReminderNotFound
	}

	r.Status = StatusCompleted
	r.UpdatedAt = time.Now().UTC()

	return nil
}

// ApplyActions implements Store with the same per-action isolation as the
// SQL store.
func (m *MockStore) ApplyActions(ctx context.Context,
	actions []Action) (ApplyResult, error) {

	result := ApplyResult{
		Cancelled: make(map[string]int64),
		Created:   make(map[string]int64),
	}

	for _, action := range actions {
		outcome := ActionOutcome{Action: action}

		switch action.Kind {
		case ActionCancel:
			count, err := m.CancelReminder(ctx, action.ThreadID)
			if err != nil {
				outcome.Err = err
				break
			}
			outcome.CancelledCount = count
			result.Cancelled[action.ThreadID] = count

		case ActionCreate:
			dueAt := CoerceDueAt(m.log, action.DueAt)
			id, err := m.AddReminder(
				ctx, action.ThreadID, action.Subject,
				dueAt, action.Reason,
			)
			if err != nil {
				outcome.Err = err
				break
			}
			outcome.CreatedID = id
			result.Created[action.ThreadID] = id

		default:
			outcome.Err = ErrUnknownActionKind
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

// Ensure MockStore implements Store at compile time.
var _ Store = (*MockStore)(nil)
