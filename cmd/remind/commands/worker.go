package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kbediako/Ambient-Email-Agent/internal/worker"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the reminder delivery worker",
	Long: `Run a delivery cycle over all due reminders: each one is rendered,
delivered and marked completed. With --once the command exits after a
single cycle; otherwise use the remindd daemon for scheduled delivery.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", true,
		"Run a single delivery cycle and exit")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, logger, closeStore, err := getReminderStore()
	if err != nil {
		return err
	}
	defer closeStore()

	deliverer := worker.NewLogDeliverer(logger)

	if !workerOnce {
		return worker.Run(ctx, store, deliverer, logger,
			worker.DefaultSchedule)
	}

	delivered, err := worker.CheckReminders(ctx, store, deliverer, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Delivered %d reminder(s)\n", delivered)

	return worker.ListReminders(ctx, store, os.Stdout)
}
