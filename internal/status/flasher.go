package status

import (
	"fmt"
	"sync"
	"time"
)

// DefaultFlashDuration is how long an alert flash stays on the indicator
const DefaultFlashDuration = 2000 * time.Millisecond

// Flasher owns an Indicator: it keeps the resting text (bell glyph and
// suggestion counter) and temporarily replaces it with an alert flash.
// Flasher implements notify.StatusSink.
type Flasher struct {
	ind      Indicator
	symbols  Symbols
	duration time.Duration

	mu       sync.Mutex
	enabled  bool
	count    int
	flashing bool
	timer    *time.Timer
}

// NewFlasher creates a Flasher and renders the resting state on ind
func NewFlasher(ind Indicator, symbols Symbols, duration time.Duration) *Flasher {
	if duration <= 0 {
		duration = DefaultFlashDuration
	}
	f := &Flasher{ind: ind, symbols: symbols, duration: duration, enabled: true}
	f.mu.Lock()
	f.renderLocked()
	f.mu.Unlock()
	return f
}

// Flash shows text with the alert glyph and color, then restores the
// resting text and color after the flash duration. A flash during a flash
// restarts the duration.
func (f *Flasher) Flash(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.flashing = true
	f.ind.SetColor(ColorAlert)
	f.ind.SetText(fmt.Sprintf("%s %s", f.symbols.Alert, text))

	var timer *time.Timer
	timer = time.AfterFunc(f.duration, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.timer != timer {
			return
		}
		f.timer = nil
		f.flashing = false
		f.renderLocked()
	})
	f.timer = timer
}

// Flashing reports whether an alert flash is currently shown
func (f *Flasher) Flashing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flashing
}

// SetSuggestionCount updates the counter in the resting text
func (f *Flasher) SetSuggestionCount(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = n
	if !f.flashing {
		f.renderLocked()
	}
}

// SetEnabled switches between the enabled and disabled resting state
func (f *Flasher) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
	if !f.flashing {
		f.renderLocked()
	}
}

// Stop cancels a pending restore and renders the resting state
func (f *Flasher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.flashing = false
	f.renderLocked()
}

func (f *Flasher) renderLocked() {
	glyph, color := f.symbols.Bell, ColorDefault
	tooltip := fmt.Sprintf("Copilot notifications enabled. Suggestions detected: %d", f.count)
	if !f.enabled {
		glyph, color = f.symbols.BellOff, ColorMuted
		tooltip = "Copilot notifications disabled. Run `copilot-notifier toggle notifications` to enable."
	}
	f.ind.SetColor(color)
	f.ind.SetText(RestingText(glyph, f.count))
	f.ind.SetTooltip(tooltip)
}

// RestingText formats the indicator text outside of a flash
func RestingText(glyph string, count int) string {
	return fmt.Sprintf("%s Copilot Notifier (%d)", glyph, count)
}
