package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Indicator is a single line of status text with a color and tooltip
type Indicator interface {
	SetText(text string)
	SetColor(c Color)
	SetTooltip(tooltip string)
	Text() string
	Color() Color
	Tooltip() string
}

// Memory is an Indicator that only holds state. It backs headless runs and tests.
type Memory struct {
	mu      sync.Mutex
	text    string
	color   Color
	tooltip string
}

func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

func (m *Memory) SetColor(c Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.color = c
}

func (m *Memory) SetTooltip(tooltip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tooltip = tooltip
}

func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

func (m *Memory) Color() Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.color
}

func (m *Memory) Tooltip() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tooltip
}

// Terminal renders the indicator as a spinner line on a TTY and as plain
// log lines otherwise. The tooltip is not rendered; it is kept for Text queries.
type Terminal struct {
	Memory

	caps Capabilities
	out  io.Writer

	mu      sync.Mutex
	spinner *spinner.Spinner
}

// NewTerminal creates a terminal indicator writing to out
func NewTerminal(out io.Writer, caps Capabilities) *Terminal {
	return &Terminal{caps: caps, out: out}
}

// Start begins rendering. It is a no-op when out is not a terminal.
func (t *Terminal) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.caps.IsTTY || t.spinner != nil {
		return
	}
	symbols := SelectSymbols(t.caps)
	t.spinner = spinner.New(spinner.CharSets[symbols.SpinnerSet], 120*time.Millisecond, spinner.WithWriter(t.out))
	t.spinner.Suffix = " " + t.Memory.Text()
	t.applyColorLocked(t.Memory.Color())
	t.spinner.Start()
}

// Stop ends rendering and clears the line
func (t *Terminal) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner != nil {
		t.spinner.Stop()
		t.spinner = nil
	}
}

func (t *Terminal) SetText(text string) {
	if text == t.Memory.Text() {
		return
	}
	t.Memory.SetText(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner == nil {
		if !t.caps.IsTTY {
			fmt.Fprintln(t.out, text)
		}
		return
	}
	t.spinner.Lock()
	t.spinner.Suffix = " " + text
	t.spinner.Unlock()
}

func (t *Terminal) SetColor(c Color) {
	t.Memory.SetColor(c)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner != nil {
		t.applyColorLocked(c)
	}
}

func (t *Terminal) applyColorLocked(c Color) {
	if !t.caps.SupportsColor {
		return
	}
	attrs := []string{"reset"}
	switch c {
	case ColorAlert:
		attrs = []string{"red", "bold"}
	case ColorMuted:
		attrs = []string{"faint"}
	}
	// Unknown attributes are rejected without changing the spinner.
	_ = t.spinner.Color(attrs...)
}
