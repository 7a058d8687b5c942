// Command hatchery runs registry operations against the configured backends.
package main

import (
	"fmt"
	"os"

	"hatchery/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hatchery:", err)
		os.Exit(1)
	}
}
