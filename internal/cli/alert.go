package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/history"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
	"github.com/copilot-notifier/copilot-notifier/internal/surface"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test alert",
	Long: `Send a test alert through the full delivery chain, with sound.

Silent mode is ignored so the chain can be checked while muted. Use
--strategy to try a single mechanism and --list to see the names.`,
	Example: `  copilot-notifier test
  copilot-notifier test --strategy zenity-popup
  copilot-notifier test --list`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	testCmd.GroupID = shared.GroupMonitoring
	testCmd.Flags().StringP("strategy", "s", "", "Only try this delivery strategy")
	testCmd.Flags().Bool("list", false, "List delivery strategies for this platform")
}

func runTest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.DefaultPaths(), nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cmd, cfg)
	defer func() { _ = logger.Sync() }()
	out := cmd.OutOrStdout()

	surf := surface.New(surface.Options{Logger: logger})
	defer surf.Wait()
	opts := cfg.StrategyOptions(logger)

	if list, _ := cmd.Flags().GetBool("list"); list {
		printStrategies(out, notify.NewDispatcher(notify.DefaultStrategies(opts), surf, logger).Strategies())
		return nil
	}

	var d *notify.Dispatcher
	if name, _ := cmd.Flags().GetString("strategy"); name != "" {
		s, err := lookupStrategy(opts, surf, name)
		if err != nil {
			return err
		}
		d = notify.NewDispatcher([]notify.Strategy{s}, nil, logger)
	} else {
		d = notify.NewDispatcher(notify.DefaultStrategies(opts), surf, logger)
	}
	defer d.Close()

	stateDir, err := config.StateDir()
	if err != nil {
		return fmt.Errorf("resolving state directory: %w", err)
	}
	handler := notify.NewHandler(d, notify.StaticPolicy(cfg.Policy()),
		notify.WithRecorder(history.NewWriter(stateDir, cfg.History.MaxEntries)),
		notify.WithLogger(logger))

	stopSpinner := startSpinner(out, "Sending test alert...")
	result := handler.SendTest(cmd.Context())
	stopSpinner()

	printResult(out, result)
	if !result.Delivered {
		return shared.NewExitError(shared.ExitFailure)
	}
	return nil
}

// lookupStrategy finds a strategy by name, preferring this platform's chain.
// Native strategies are offered even when native_notifications is off.
func lookupStrategy(opts notify.StrategyOptions, fallback notify.Strategy, name string) (notify.Strategy, error) {
	if name == fallback.Name() {
		return fallback, nil
	}
	opts.Native = true
	if s, ok := notify.FindStrategy(notify.DefaultStrategies(opts), name); ok {
		return s, nil
	}
	all := notify.AllStrategies(opts)
	if s, ok := notify.FindStrategy(all, name); ok {
		return s, nil
	}
	names := make([]string, 0, len(all)+1)
	for _, s := range all {
		names = append(names, s.Name())
	}
	names = append(names, fallback.Name())
	return nil, fmt.Errorf("unknown strategy %q; available: %s", name, strings.Join(uniq(names), ", "))
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func printStrategies(out io.Writer, list []notify.Strategy) {
	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	for i, s := range list {
		state := green("available")
		if p, ok := s.(notify.Prober); ok && !p.Available() {
			state = dim("unavailable")
		}
		fmt.Fprintf(out, "%2d. %-22s %s\n", i+1, s.Name(), state)
	}
}

func printResult(out io.Writer, r notify.Result) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, f := range r.Failures {
		fmt.Fprintf(out, "  %s %s: %v\n", dim("skip"), f.Strategy, f.Err)
	}
	if r.Delivered {
		fmt.Fprintf(out, "%s Test alert delivered via %s\n", green("✓"), r.Strategy)
		return
	}
	fmt.Fprintf(out, "%s Test alert was not delivered: %v\n", red("✗"), r.Err)
}

// startSpinner shows a spinner on terminals and returns its stop function
func startSpinner(out io.Writer, msg string) func() {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
