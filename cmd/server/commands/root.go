package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "retroboard",
	Short: "Retroboard - retrospective boards over HTTP",
	Long: `Retroboard serves retrospective boards: columns of cards that a team
adds to, edits, drags between columns and merges together.

Configuration comes from the environment (and an optional .env file).
RETRO_CONFIG_FILE may name a YAML file with default_columns and session_ttl.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Errors are printed by the commands themselves.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version string shown by --version.
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
