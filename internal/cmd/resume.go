package cmd

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <configuration_file>",
	Short: "Resume a crawl from its checkpoint file",
	Long: "resume is equivalent to crawl except it expects a checkpoint " +
		"file to already exist next to the configuration file and warns, " +
		"rather than silently starting fresh, when one is not found.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(runOptions{
			configPath: args[0],
			mustResume: true,
		})
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
