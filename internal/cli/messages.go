package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// consoleMessages prints messages to a terminal stream. It has no way to
// collect a choice, so Show always reports a dismissal.
type consoleMessages struct {
	out io.Writer
}

func (c consoleMessages) Show(_ context.Context, severity notify.Severity, message string, _ ...string) (string, error) {
	var label string
	switch severity {
	case notify.SeverityError:
		label = color.New(color.FgRed, color.Bold).Sprint("error")
	case notify.SeverityWarning:
		label = color.New(color.FgYellow, color.Bold).Sprint("warning")
	default:
		label = color.New(color.FgCyan).Sprint("info")
	}
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", label, message)
	return "", err
}

// reportInitFailure tells the user once that monitoring is off, unless
// the configuration asks for silence
func reportInitFailure(ctx context.Context, sink notify.MessageSink, silent bool, err error) {
	if silent {
		return
	}
	msg := fmt.Sprintf("Copilot Notifier failed to initialize: %v. Monitoring is disabled until restart.", err)
	_, _ = sink.Show(ctx, notify.SeverityError, msg)
}
