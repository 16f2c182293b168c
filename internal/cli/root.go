// Package cli provides the Cobra commands of copilot-notifier: the watch
// daemon, test alerts, feature toggles, configuration, diagnostics and
// delivery history.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/config"
	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
)

var rootCmd = &cobra.Command{
	Use:   "copilot-notifier",
	Short: "Out-of-band alerts for AI code completion",
	Long: `copilot-notifier watches editor activity for AI completion sessions and
alerts you through the best notification mechanism your system offers.

Editors stream edits and completion candidates over the local bridge
(ws://127.0.0.1:7878/ws by default); without an editor extension, saves in a
watched directory are used instead.`,
	Example: `  # Start monitoring
  copilot-notifier watch

  # Send a test alert through the full delivery chain
  copilot-notifier test

  # Mute everything
  copilot-notifier toggle silent

  # Check which notification mechanisms work here
  copilot-notifier doctor`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports any error on stderr
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !shared.IsSilentExit(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
	}
	return err
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: shared.GroupMonitoring, Title: "Monitoring:"})
	rootCmd.AddGroup(&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"})
	rootCmd.AddGroup(&cobra.Group{ID: shared.GroupDiagnostics, Title: "Diagnostics:"})

	rootCmd.SetHelpCommandGroupID(shared.GroupConfiguration)
	rootCmd.SetCompletionCommandGroupID(shared.GroupConfiguration)

	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	config.Register(rootCmd)
}
