package cmd

import (
	"github.com/spf13/cobra"
)

var crawlNoState bool

var crawlCmd = &cobra.Command{
	Use:   "crawl <configuration_file>",
	Short: "Run a crawl from the given configuration file",
	Long: "crawl starts a new run, or resumes automatically from an " +
		"existing checkpoint file sibling to the configuration file unless " +
		"--no-state is given.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(runOptions{
			configPath: args[0],
			noState:    crawlNoState,
		})
	},
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlNoState, "no-state", false, "disable checkpoint reading and writing for this run")
	rootCmd.AddCommand(crawlCmd)
}
