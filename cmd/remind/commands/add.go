package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
)

var (
	addSubject string
	addDueIn   time.Duration
	addDueAt   string
	addReason  string
)

var addCmd = &cobra.Command{
	Use:   "add <thread-id>",
	Short: "Create a follow-up reminder for a thread",
	Long: `Create a reminder for the given thread. If the thread already has an
active reminder, its id is returned instead of creating a duplicate.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addSubject, "subject", "s", "",
		"Subject line for the reminder (required)")
	addCmd.Flags().DurationVar(&addDueIn, "due-in", 24*time.Hour,
		"Time until the reminder fires")
	addCmd.Flags().StringVar(&addDueAt, "due-at", "",
		"Absolute due time (ISO-8601, overrides --due-in)")
	addCmd.Flags().StringVarP(&addReason, "reason", "r",
		"Created manually", "Reason recorded on the reminder")

	_ = addCmd.MarkFlagRequired("subject")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	threadID := args[0]

	store, logger, closeStore, err := getReminderStore()
	if err != nil {
		return err
	}
	defer closeStore()

	dueAt := time.Now().UTC().Add(addDueIn)
	if addDueAt != "" {
		dueAt = reminder.CoerceDueAt(logger, addDueAt)
	}

	id, err := store.AddReminder(ctx, threadID, addSubject, dueAt,
		addReason)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(map[string]any{
			"reminder_id": id,
			"thread_id":   threadID,
			"due_at":      dueAt.Format(time.RFC3339),
		})
	}

	fmt.Printf("Reminder %d set for thread %s (due %s)\n",
		id, threadID, dueAt.Format(time.RFC3339))

	return nil
}
