package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/health"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
	"github.com/copilot-notifier/copilot-notifier/internal/surface"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and delivery mechanisms",
	Long: `Run health checks for copilot-notifier.

This command checks:
  - config files parse and contain only known keys
  - the custom sound file, when one is set
  - which native notification mechanisms this host offers

Each check shows ✓ when usable, - when an optional mechanism is missing,
and ✗ with an error for problems that need fixing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths := config.DefaultPaths()
		cfg, err := config.Load(paths, nil)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		report := health.RunHealthChecks(health.Options{
			ConfigFiles: paths.Files(),
			SoundFile:   cfg.SoundFile,
			Native:      cfg.NativeNotifications,
			Strategies:  notify.DefaultStrategies(cfg.StrategyOptions(nil)),
			Fallback:    surface.Name,
		})

		fmt.Fprint(cmd.OutOrStdout(), health.FormatReport(report))
		if !report.Passed {
			return shared.NewExitError(shared.ExitFailure)
		}
		return nil
	},
}

func init() {
	doctorCmd.GroupID = shared.GroupDiagnostics
}
