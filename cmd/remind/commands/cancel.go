package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <thread-id>",
	Short: "Cancel the active reminder for a thread",
	Long: `Cancel the thread's active reminder. Cancelling a thread with no
active reminder is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	threadID := args[0]

	store, _, closeStore, err := getReminderStore()
	if err != nil {
		return err
	}
	defer closeStore()

	cancelled, err := store.CancelReminder(ctx, threadID)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(map[string]any{
			"thread_id": threadID,
			"cancelled": cancelled,
		})
	}

	if cancelled == 0 {
		fmt.Printf("No active reminder for thread %s\n", threadID)
		return nil
	}

	fmt.Printf("Cancelled %d reminder(s) for thread %s\n", cancelled,
		threadID)

	return nil
}
