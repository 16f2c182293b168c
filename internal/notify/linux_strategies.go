package notify

import (
	"fmt"
	"os"
)

// hasDisplay checks if an X11 or Wayland display is available
func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// linuxSound plays a custom file with paplay, or the freedesktop
// message sound through canberra-gtk-play
func linuxSound(opts StrategyOptions) func(Request) (command, bool) {
	return func(Request) (command, bool) {
		if file := ValidateSoundFile(opts.SoundFile, opts.Logger); file != "" {
			if _, err := opts.Runner.LookPath("paplay"); err == nil {
				return command{name: "paplay", args: []string{file}}, true
			}
		}
		if _, err := opts.Runner.LookPath("canberra-gtk-play"); err == nil {
			return command{name: "canberra-gtk-play", args: []string{"-i", "message-new-instant"}}, true
		}
		return command{}, false
	}
}

func linuxUrgency(sev Severity) (string, byte) {
	switch sev {
	case SeverityError:
		return "critical", 2
	case SeverityInfo:
		return "low", 0
	default:
		return "normal", 1
	}
}

func linuxStrategies(opts StrategyOptions) []*execStrategy {
	sound := linuxSound(opts)

	notifySend := &execStrategy{
		name:     "notify-send",
		tool:     "notify-send",
		runner:   opts.Runner,
		timeout:  DefaultAttemptTimeout,
		logger:   opts.Logger,
		requires: hasDisplay,
		sound:    sound,
		build: func(req Request) command {
			urgency, _ := linuxUrgency(req.Severity)
			return command{name: "notify-send", args: []string{
				"-u", urgency, "-a", "copilot-notifier", "-t", "8000", req.Title, req.Body,
			}}
		},
	}

	zenity := &execStrategy{
		name:     "zenity-popup",
		tool:     "zenity",
		runner:   opts.Runner,
		timeout:  DefaultAttemptTimeout,
		logger:   opts.Logger,
		requires: hasDisplay,
		sound:    sound,
		okExit:   []int{5},
		build: func(req Request) command {
			kind := "--info"
			switch req.Severity {
			case SeverityWarning:
				kind = "--warning"
			case SeverityError:
				kind = "--error"
			}
			return command{name: "zenity", args: []string{
				kind, "--no-wrap", "--timeout", "8", "--title", req.Title, "--text", req.Body,
			}}
		},
	}

	// gdbus talks to the notification service directly so the request can
	// carry urgency and sound-name hints that notify-send does not expose.
	gdbus := &execStrategy{
		name:     "gdbus-notify",
		tool:     "gdbus",
		runner:   opts.Runner,
		timeout:  DefaultAttemptTimeout,
		logger:   opts.Logger,
		requires: hasDisplay,
		build: func(req Request) command {
			_, level := linuxUrgency(req.Severity)
			hints := fmt.Sprintf("{'urgency': <byte %d>}", level)
			if req.WantsSound {
				hints = fmt.Sprintf("{'urgency': <byte %d>, 'sound-name': <'message-new-instant'>}", level)
			}
			return command{name: "gdbus", args: []string{
				"call", "--session",
				"--dest", "org.freedesktop.Notifications",
				"--object-path", "/org/freedesktop/Notifications",
				"--method", "org.freedesktop.Notifications.Notify",
				"copilot-notifier", "0", "dialog-information",
				req.Title, req.Body, "[]", hints, "8000",
			}}
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

	return []*execStrategy{notifySend, zenity, gdbus, wall}
}
