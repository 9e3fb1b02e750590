package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loltools/riftcrawl/internal/config"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config <configuration_file>",
	Short: "Load, normalize, and print the effective configuration",
	Long: "show-config loads a configuration file, applies defaults and " +
		"environment overrides, and prints the resulting runtime " +
		"configuration as YAML - useful for an operator checking what a " +
		"file plus the current environment actually resolve to before a " +
		"real crawl is started.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := config.LoadRaw(args[0])
		if err != nil {
			return exitError(exitInvalidConfig, "load configuration", err)
		}
		rt, err := config.Normalize(raw)
		if err != nil {
			return exitError(exitInvalidConfig, "normalize configuration", err)
		}

		out, err := yaml.Marshal(rt)
		if err != nil {
			return exitError(exitRuntimeError, "render configuration", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}
