package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kbediako/Ambient-Email-Agent/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   runVersion,
}

// runVersion prints the version and build information.
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("remind version %s", build.Version())

	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	}

	fmt.Println()
}
