// Package cli implements the oversite command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/akshatvasisht/oversite/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "oversite",
	Short: "Behavioral scoring for AI-assisted coding sessions",
	Long: `oversite records how a candidate works with an AI coding assistant
during a timed exercise and scores the collaboration: how suggestions
were reviewed, how prompts were written, and how changes were verified.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to TOML config file")
	rootCmd.AddCommand(serveCmd, scoreCmd, reportCmd, checkCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
