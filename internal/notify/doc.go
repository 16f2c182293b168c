// Package notify delivers human-visible alerts for completion activity.
//
// A Request is delivered through an ordered, platform-aware list of
// delivery strategies. The Dispatcher attempts them one at a time, stops at
// the first success and falls back through the remainder on any failure,
// including failures reported asynchronously after a process exits.
// Delivery is best-effort: exhausting every strategy is logged, never
// surfaced to the user.
//
// # Platform Support
//
//   - Linux: notify-send, zenity popup, gdbus Notify hints, wall broadcast
//   - macOS: osascript notification, osascript dialog, terminal-notifier, wall broadcast
//   - Windows: PowerShell balloon, WScript.Shell popup, WinRT toast XML, msg.exe broadcast
//
// Every OS-specific strategy is wrapped by Gate, so on a foreign platform it
// fails immediately and the chain jumps straight to the universal fallback
// (the terminal surface in package surface).
//
// # Usage
//
//	d := notify.NewDispatcher(notify.DefaultStrategies(notify.StrategyOptions{Native: true}), fallback, logger)
//	h := notify.NewHandler(d, policySource, notify.WithStatus(flasher))
//	h.OnSuggestion(ctx, notify.NewSuggestion("func main() { ... }"))
package notify
