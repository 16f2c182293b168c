package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent alert deliveries",
	Long: `View recent alerts with the strategy that delivered each one, or the
strategies that failed when none did.`,
	Example: `  copilot-notifier history
  copilot-notifier history -n 5 --status exhausted
  copilot-notifier history --clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stateDir, err := config.StateDir()
		if err != nil {
			return fmt.Errorf("resolving state directory: %w", err)
		}
		return runHistoryWithStateDir(cmd, stateDir)
	},
}

func init() {
	historyCmd.GroupID = shared.GroupDiagnostics
	historyCmd.Flags().IntP("limit", "n", 0, "Limit to last N entries (most recent)")
	historyCmd.Flags().String("status", "", "Filter by status (delivered, exhausted, abandoned)")
	historyCmd.Flags().Bool("clear", false, "Clear all history")
	historyCmd.Flags().BoolP("verbose", "v", false, "Show failed strategies for each entry")
}

// runHistoryWithStateDir runs the history command against stateDir
func runHistoryWithStateDir(cmd *cobra.Command, stateDir string) error {
	clearFlag, _ := cmd.Flags().GetBool("clear")
	statusFilter, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()

	if limit < 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	switch statusFilter {
	case "", history.StatusDelivered, history.StatusExhausted, history.StatusAbandoned:
	default:
		return fmt.Errorf("unknown status %q (valid: delivered, exhausted, abandoned)", statusFilter)
	}

	if clearFlag {
		if err := history.Clear(stateDir); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}

	f, err := history.Load(stateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	entries := filterEntries(f.Entries, statusFilter, limit)
	if len(entries) == 0 {
		if statusFilter != "" {
			fmt.Fprintf(out, "No matching entries for status '%s'.\n", statusFilter)
		} else {
			fmt.Fprintln(out, "No history available.")
		}
		return nil
	}

	displayEntries(out, entries, verbose)
	return nil
}

// filterEntries filters by status and keeps the most recent limit entries
func filterEntries(entries []history.Entry, statusFilter string, limit int) []history.Entry {
	var result []history.Entry
	for _, e := range entries {
		if statusFilter != "" && e.Status != statusFilter {
			continue
		}
		result = append(result, e)
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

func displayEntries(out io.Writer, entries []history.Entry, verbose bool) {
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, e := range entries {
		via := e.Strategy
		if via == "" {
			via = "-"
		}
		fmt.Fprintf(out, "%s  %s  %-20s  %-24s  %s\n",
			cyan(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
			formatStatus(e.Status),
			via,
			e.Title,
			oneLine(e.Body, 60),
		)
		if verbose {
			for _, f := range e.Failures {
				fmt.Fprintf(out, "    %s %s: %s\n", dim("failed"), f.Strategy, f.Error)
			}
		}
	}
}

func formatStatus(status string) string {
	padded := fmt.Sprintf("%-9s", status)
	switch status {
	case history.StatusDelivered:
		return color.New(color.FgGreen).Sprint(padded)
	case history.StatusAbandoned:
		return color.New(color.FgYellow).Sprint(padded)
	case history.StatusExhausted:
		return color.New(color.FgRed).Sprint(padded)
	default:
		return padded
	}
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}
