// Package status renders the always-visible status indicator: the bell
// glyph, the suggestion counter and the short alert flash.
package status

// Color is a semantic indicator color. The zero value is the default color.
type Color string

const (
	// ColorDefault restores the terminal's default foreground
	ColorDefault Color = ""
	// ColorAlert is used while an alert is flashing
	ColorAlert Color = "red"
	// ColorMuted is used while notifications are disabled
	ColorMuted Color = "faint"
)

// Capabilities encapsulates detected terminal features
type Capabilities struct {
	// IsTTY indicates whether the output is a terminal (vs pipe/redirect)
	IsTTY bool
	// SupportsColor indicates whether terminal supports ANSI color codes
	SupportsColor bool
	// SupportsUnicode indicates whether terminal supports Unicode characters
	SupportsUnicode bool
	// Width is the terminal width in columns (0 if unknown/pipe)
	Width int
}

// Symbols defines the glyphs used by the indicator
type Symbols struct {
	// Bell marks enabled notifications ("🔔" or "[on]")
	Bell string
	// BellOff marks disabled notifications ("🔕" or "[off]")
	BellOff string
	// Alert prefixes a flashing alert ("🛎" or "(!)")
	Alert string
	// SpinnerSet is the index into spinner.CharSets
	SpinnerSet int
}
