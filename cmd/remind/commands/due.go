package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List reminders that are due now",
	Long:  `Display active reminders whose due time has passed.`,
	RunE:  runDue,
}

func runDue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, closeStore, err := getReminderStore()
	if err != nil {
		return err
	}
	defer closeStore()

	due, err := store.GetDueReminders(ctx)
	if err != nil {
		return err
	}

	return printReminders(os.Stdout, due)
}
