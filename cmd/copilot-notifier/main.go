// copilot-notifier - out-of-band alerts for AI code-completion activity

package main

import (
	"os"

	"github.com/copilot-notifier/copilot-notifier/internal/cli"
	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(shared.ExitCode(err))
	}
}
