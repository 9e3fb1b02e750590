// Package cmd implements riftcrawl's thin CLI entry point: one root
// command plus crawl, resume, and show-config subcommands whose RunE
// functions build collaborators and call into pkg/crawler.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "riftcrawl",
	Short:         "BFS crawler for ranked match records",
	Long:          "riftcrawl crawls ranked match records from a rate-limited third-party game API, starting from seed players and alternating between player-expansion and match-fetching until work is exhausted or stopped.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is the only entry point
// cmd/riftcrawl's main package calls.
func Execute() error {
	return rootCmd.Execute()
}

// ExitError is returned by a command's RunE to request a specific
// process exit code: 0 on clean stop, non-zero on fatal configuration
// error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode reports the process exit code a cmd/riftcrawl main should use.
func (e *ExitError) ExitCode() int { return e.Code }

const (
	exitInvalidConfig = 2
	exitRuntimeError  = 1
)

func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}
