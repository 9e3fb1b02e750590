// Command riftcrawl is the process entry point: it hands off to
// internal/cmd, which parses arguments, loads configuration and drives
// pkg/crawler, and maps a returned error onto the process exit code.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/loltools/riftcrawl/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
