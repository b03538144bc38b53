package reminder

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a reminder.
type Status string

const (
	// StatusActive marks a reminder that has been created and not yet
	// fired or cancelled.
	StatusActive Status = "active"

	// StatusCancelled marks a reminder that was superseded or explicitly
	// cancelled before firing.
	StatusCancelled Status = "cancelled"

	// StatusCompleted marks a reminder that fired and was successfully
	// notified by the delivery worker.
	StatusCompleted Status = "completed"
)

// Reminder is a scheduled follow-up tied to a conversation thread. A thread
// has at most one active reminder at a time.
type Reminder struct {
	// ID is the surrogate identifier assigned by the store.
	ID int64

	// ThreadID identifies the conversation the reminder is about.
	ThreadID string

	// Subject is a free text label, usually the email subject.
	Subject string

	// DueAt is the UTC instant at which the reminder fires.
	DueAt time.Time

	// Reason is a free text explanation kept for audit and display.
	Reason string

	// Status is the current lifecycle state.
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActionKind discriminates pending reminder actions.
type ActionKind string

const (
	// ActionCreate schedules a new reminder for a thread.
	ActionCreate ActionKind = "create"

	// ActionCancel cancels the active reminder of a thread.
	ActionCancel ActionKind = "cancel"
)

// Action is an unexecuted reminder instruction queued between graph turns.
// DueAt carries the raw wire value (RFC 3339 string, time.Time, or garbage)
// and is only coerced when the action is applied.
type Action struct {
	Kind     ActionKind `json:"action"`
	ThreadID string     `json:"thread_id"`
	Subject  string     `json:"subject,omitempty"`
	DueAt    any        `json:"due_at,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// ActionOutcome records the result of applying a single action from a
// batch. A non-nil Err means the action was skipped; the rest of the batch
// still runs.
type ActionOutcome struct {
	Action Action

	// CancelledCount is the number of reminders cancelled, for cancel
	// actions.
	CancelledCount int64

	// CreatedID is the id of the ensured reminder, for create actions.
	CreatedID int64

	Err error
}

// ApplyResult aggregates the outcome of an ApplyActions batch.
type ApplyResult struct {
	// Cancelled maps thread id to the number of reminders cancelled.
	Cancelled map[string]int64

	// Created maps thread id to the ensured reminder id.
	Created map[string]int64

	// Outcomes holds the per-action results in batch order, including
	// skipped actions.
	Outcomes []ActionOutcome
}

var (
	// ErrEmptyThreadID is returned when a store operation is missing its
	// thread id.
	ErrEmptyThreadID = errors.New("reminder thread id must not be empty")

	// ErrEmptySubject is returned when a reminder is created without a
	// subject.
	ErrEmptySubject = errors.New("reminder subject must not be empty")

	// ErrReminderNotFound is returned when marking a reminder completed
	// that is not active.
	ErrReminderNotFound = errors.New("no active reminder found")

	// ErrUnknownActionKind is returned for batch actions whose kind is
	// neither create nor cancel.
	ErrUnknownActionKind = errors.New("unknown reminder action kind")
)
