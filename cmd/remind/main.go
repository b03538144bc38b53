package main

import (
	"fmt"
	"os"

	"github.com/Kbediako/Ambient-Email-Agent/cmd/remind/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
