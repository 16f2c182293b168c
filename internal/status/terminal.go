package status

import (
	"os"

	"golang.org/x/term"
)

// DetectCapabilities detects terminal features of f
func DetectCapabilities(f *os.File) Capabilities {
	isTTY := term.IsTerminal(int(f.Fd()))

	noColor := os.Getenv("NO_COLOR") != ""
	forceASCII := os.Getenv("COPILOT_NOTIFIER_ASCII") == "1"

	width := 0
	if isTTY {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	return Capabilities{
		IsTTY:           isTTY,
		SupportsColor:   isTTY && !noColor,
		SupportsUnicode: isTTY && !forceASCII,
		Width:           width,
	}
}

// SelectSymbols returns the glyph set for caps
func SelectSymbols(caps Capabilities) Symbols {
	if caps.SupportsUnicode {
		return Symbols{
			Bell:       "🔔",
			BellOff:    "🔕",
			Alert:      "🛎",
			SpinnerSet: 14, // ⠋ ⠙ ⠹ ⠸ ⠼ ⠴ ⠦ ⠧ ⠇ ⠏
		}
	}
	return Symbols{
		Bell:       "[on]",
		BellOff:    "[off]",
		Alert:      "(!)",
		SpinnerSet: 9, // | / - \
	}
}
