package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active reminders",
	Long:  `Display every reminder that is still active, ordered by due time.`,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, closeStore, err := getReminderStore()
	if err != nil {
		return err
	}
	defer closeStore()

	active, err := store.IterActive(ctx)
	if err != nil {
		return err
	}

	return printReminders(os.Stdout, active)
}
