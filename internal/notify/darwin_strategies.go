package notify

import (
	"fmt"
	"strings"
)

const (
	// DefaultMacOSSound is the default notification sound on macOS
	DefaultMacOSSound = "/System/Library/Sounds/Glass.aiff"
)

// escapeAppleScript quotes s as an AppleScript string literal
func escapeAppleScript(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func darwinSound(opts StrategyOptions) func(Request) (command, bool) {
	return func(Request) (command, bool) {
		file := ValidateSoundFile(opts.SoundFile, opts.Logger)
		if file == "" {
			file = DefaultMacOSSound
		}
		if _, err := opts.Runner.LookPath("afplay"); err != nil {
			return command{}, false
		}
		return command{name: "afplay", args: []string{file}}, true
	}
}

func darwinStrategies(opts StrategyOptions) []*execStrategy {
	sound := darwinSound(opts)

	notification := &execStrategy{
		name:    "osascript-notification",
		tool:    "osascript",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		build: func(req Request) command {
			script := fmt.Sprintf("display notification %s with title %s",
				escapeAppleScript(req.Body), escapeAppleScript(req.Title))
			if req.WantsSound {
				script += ` sound name "Glass"`
			}
			return command{name: "osascript", args: []string{"-e", script}}
		},
	}

	dialog := &execStrategy{
		name:    "osascript-dialog",
		tool:    "osascript",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		sound:   sound,
		build: func(req Request) command {
			icon := "note"
			switch req.Severity {
			case SeverityWarning:
				icon = "caution"
			case SeverityError:
				icon = "stop"
			}
			script := fmt.Sprintf(`display dialog %s with title %s buttons {"OK"} default button "OK" with icon %s giving up after 8`,
				escapeAppleScript(req.Body), escapeAppleScript(req.Title), icon)
			return command{name: "osascript", args: []string{"-e", script}}
		},
	}

	terminalNotifier := &execStrategy{
		name:    "terminal-notifier",
		tool:    "terminal-notifier",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		build: func(req Request) command {
			args := []string{"-title", req.Title, "-message", req.Body, "-group", "copilot-notifier"}
			if req.WantsSound {
				args = append(args, "-sound", "default")
			}
			return command{name: "terminal-notifier", args: args}
		},
	}

	wall := &execStrategy{
		name:    "wall-broadcast",
		tool:    "wall",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		sound:   sound,
		build: func(req Request) command {
			return command{name: "wall", args: []string{fmt.Sprintf("%s: %s", req.Title, req.Body)}}
		},
	}

	return []*execStrategy{notification, dialog, terminalNotifier, wall}
}
