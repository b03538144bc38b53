package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// dbPath is the path to the SQLite database.
	dbPath string

	// outputFormat controls output format (text, json).
	outputFormat string

	// verbose enables debug logging on the command's store.
	verbose bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "remind",
	Short: "Email assistant reminder CLI",
	Long: `Remind manages the email assistant's follow-up reminders.

Use this CLI to inspect and cancel reminders, review sender reputation,
and run the delivery worker outside the agent graph.`,
}

// Execute runs the CLI.
func Execute() error {
	// Pick up local overrides (judge toggles, paths) the same way the
	// agent process does. A missing .env file is fine.
	_ = godotenv.Load()

	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&dbPath, "db", "",
		"Path to SQLite database (default: "+
			"~/.ambient-email-agent/reminders.db)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose, "verbose", false,
		"Enable debug logging",
	)

	// Add subcommands.
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(sendersCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)
}
