// Package config provides the `config` command tree: get, set, toggle and keys.
package config

import (
	"github.com/spf13/cobra"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration",
	Long: `Inspect and change copilot-notifier configuration.

Values are read from defaults, the user config (~/.config/copilot-notifier/config.yml),
the project config (.copilot-notifier/config.yml) and COPILOT_NOTIFIER_* environment
variables, in increasing priority. Writes keep existing comments.`,
}

// Register adds the config command tree to the root command.
func Register(rootCmd *cobra.Command) {
	configCmd.GroupID = shared.GroupConfiguration
	rootCmd.AddCommand(configCmd)
}
