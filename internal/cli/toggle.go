package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/config"
	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
)

// toggleKeys maps toggle names to configuration keys
var toggleKeys = map[string]string{
	"notifications":   "enabled",
	"monitoring":      "monitor_session",
	"sound":           "use_sound",
	"native":          "native_notifications",
	"editor-messages": "show_editor_messages",
	"silent":          "silent_mode",
}

var toggleLabels = map[string]string{
	"enabled":              "Copilot notifications",
	"monitor_session":      "Session monitoring",
	"use_sound":            "Notification sound",
	"native_notifications": "Native notifications",
	"show_editor_messages": "Editor messages",
	"silent_mode":          "Silent mode",
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <" + strings.Join(toggleNames(), "|") + ">",
	Short: "Turn a notifier feature on or off",
	Long: `Flip a notifier feature and save it to the user config (or the project
config with --project). A running watch picks the change up immediately.`,
	Example: `  copilot-notifier toggle sound
  copilot-notifier toggle silent
  copilot-notifier toggle editor-messages --project`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: toggleNames(),
	RunE:      runToggle,
}

func init() {
	toggleCmd.GroupID = shared.GroupConfiguration
	config.AddScopeFlags(toggleCmd)
}

func toggleNames() []string {
	names := make([]string, 0, len(toggleKeys))
	for name := range toggleKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runToggle(cmd *cobra.Command, args []string) error {
	key, ok := toggleKeys[args[0]]
	if !ok {
		return fmt.Errorf("unknown feature %q; choose one of: %s", args[0], strings.Join(toggleNames(), ", "))
	}

	_, next, _, scope, err := config.Toggle(cmd, key)
	if err != nil {
		return err
	}

	// Turning silent mode on is itself silent.
	if key == "silent_mode" && next {
		return nil
	}
	state := "disabled"
	if next {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s config)\n", toggleLabels[key], state, scope)
	return nil
}
