// Package worker implements the reminder delivery loop: it drains due
// reminders from the store, renders and delivers their notifications, and
// marks them completed.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/yuin/goldmark"

	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

// Deliverer sends a rendered reminder notification. The production
// implementation hands the message to the mail transport; tests and the
// default daemon configuration use LogDeliverer.
type Deliverer interface {
	SendNotification(ctx context.Context, r reminder.Reminder,
		htmlBody string) error
}

// LogDeliverer is a Deliverer that only logs the notification. It stands in
// for the Gmail send path, which lives outside this system.
type LogDeliverer struct {
	log *slog.Logger
}

// NewLogDeliverer creates a logging deliverer.
func NewLogDeliverer(log *slog.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

// SendNotification implements Deliverer.
func (d *LogDeliverer) SendNotification(_ context.Context,
	r reminder.Reminder, _ string) error {

	d.log.Info("Reminder due",
		"reminder_id", r.ID,
		"thread_id", r.ThreadID,
		"subject", r.Subject,
		"due_at", r.DueAt.Format(time.RFC3339),
	)

	return nil
}

// RenderNotification renders the reminder notification body from markdown
// to HTML.
func RenderNotification(r reminder.Reminder) (string, error) {
	md := fmt.Sprintf(
		"# Follow-up reminder: %s\n\n"+
			"**Thread:** `%s`\n\n"+
			"**Due:** %s\n\n%s\n",
		r.Subject, r.ThreadID, r.DueAt.Format(time.RFC3339), r.Reason,
	)

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render notification: %w", err)
	}

	return buf.String(), nil
}

// CheckReminders fetches all due reminders, delivers their notifications
// and marks them completed. A failed delivery is logged and the reminder
// stays active so the next cycle retries it. Returns the number of
// reminders successfully delivered.
func CheckReminders(ctx context.Context, store reminder.Store,
	deliverer Deliverer, log *slog.Logger) (int, error) {

	due, err := store.GetDueReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due reminders: %w", err)
	}

	delivered := 0
	for _, r := range due {
		html, err := RenderNotification(r)
		if err != nil {
			log.Error("Failed to render notification",
				"reminder_id", r.ID, "error", err,
			)
			continue
		}

		if err := deliverer.SendNotification(ctx, r, html); err != nil {
			log.Error("Failed to deliver notification",
				"reminder_id", r.ID,
				"thread_id", r.ThreadID,
				"error", err,
			)
			continue
		}

		if err := store.MarkCompleted(ctx, r.ID); err != nil {
			log.Error("Failed to mark reminder completed",
				"reminder_id", r.ID, "error", err,
			)
			continue
		}

		delivered++
	}

	return delivered, nil
}

// ListReminders writes a table of all active reminders to w.
func ListReminders(ctx context.Context, store reminder.Store,
	w io.Writer) error {

	active, err := store.IterActive(ctx)
	if err != nil {
		return fmt.Errorf(
			"failed to list active reminders: %w", err,
		)
	}

	fmt.Fprintf(w, "Active Reminders (%d)\n", len(active))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTHREAD\tSUBJECT\tDUE AT")
	for _, r := range active {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			r.ID, r.ThreadID, r.Subject,
			r.DueAt.Format(time.RFC3339),
		)
	}

	return tw.Flush()
}

// Run drives the delivery loop on the given cron schedule until the
// context is cancelled.
func Run(ctx context.Context, store reminder.Store, deliverer Deliverer,
	log *slog.Logger, cronExpr string) error {

	for {
		wait, err := NextRun(cronExpr)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w",
				cronExpr, err)
		}

		log.Debug("Sleeping until next delivery cycle",
			"wait", wait,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(wait):
		}

		delivered, err := CheckReminders(ctx, store, deliverer, log)
		if err != nil {
			log.Error("Delivery cycle failed", "error", err)
			continue
		}

		if delivered > 0 {
			log.Info("Delivery cycle complete",
				"delivered", delivered,
			)
		}
	}
}
