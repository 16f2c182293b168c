package surface

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

const tickInterval = 100 * time.Millisecond

// Hint is shown while a sound cue waits for a key press
const Hint = "Press any key to play sound (autoplay blocked)"

type (
	tickMsg time.Time
	// alertMsg replaces the card's alert; ack is closed once it is shown
	alertMsg struct {
		req notify.Request
		ack chan struct{}
	}
	// soundPlayedMsg reports that the bell rang; the card closes shortly after
	soundPlayedMsg struct{}
	closeMsg       struct{}
)

// model is the interactive alert card
type model struct {
	req       notify.Request
	lifetime  time.Duration
	afterBell time.Duration
	bell      func()

	start     time.Time
	now       time.Time
	bar       progress.Model
	rang      bool
	width     int
	dismissed bool
}

func newModel(req notify.Request, lifetime, afterBell time.Duration, bell func(), now time.Time) model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = cardWidth - 4
	return model{
		req:       req,
		lifetime:  lifetime,
		afterBell: afterBell,
		bell:      bell,
		start:     now,
		now:       now,
		bar:       bar,
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if m.remaining() <= 0 {
			m.dismissed = true
			return m, tea.Quit
		}
		return m, tick()

	case alertMsg:
		// A newer alert replaces the card and restarts its countdown.
		m.req = msg.req
		if msg.ack != nil {
			close(msg.ack)
		}
		m.start = m.now
		m.rang = false
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.dismissed = true
			return m, tea.Quit
		}
		if m.req.WantsSound && !m.rang {
			m.rang = true
			return m, m.ring()
		}
		m.dismissed = true
		return m, tea.Quit

	case soundPlayedMsg:
		return m, tea.Tick(m.afterBell, func(time.Time) tea.Msg { return closeMsg{} })

	case closeMsg:
		m.dismissed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) ring() tea.Cmd {
	bell := m.bell
	return func() tea.Msg {
		if bell != nil {
			bell()
		}
		return soundPlayedMsg{}
	}
}

func (m model) remaining() time.Duration {
	return m.lifetime - m.now.Sub(m.start)
}

func (m model) View() string {
	if m.dismissed {
		return ""
	}
	var footer strings.Builder
	frac := float64(m.remaining()) / float64(m.lifetime)
	if frac < 0 {
		frac = 0
	}
	footer.WriteString(m.bar.ViewAs(frac))
	footer.WriteString("\n")
	switch {
	case m.req.WantsSound && !m.rang:
		footer.WriteString(hintStyle.Render(Hint))
	case m.rang:
		footer.WriteString(hintStyle.Render("Sound played"))
	default:
		footer.WriteString(hintStyle.Render("Press any key to dismiss"))
	}
	footer.WriteString("\n")
	footer.WriteString(hintStyle.Render(fmt.Sprintf("Closing in %ds", int(m.remaining().Round(time.Second)/time.Second))))
	return renderCard(m.req, footer.String())
}

const cardWidth = 54

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(cardWidth)
)

func severityColor(s notify.Severity) lipgloss.Color {
	switch s {
	case notify.SeverityError:
		return lipgloss.Color("#dc2626")
	case notify.SeverityWarning:
		return lipgloss.Color("#d97706")
	default:
		return lipgloss.Color("#3b82f6")
	}
}

// renderCard draws the alert box with an optional footer
func renderCard(req notify.Request, footer string) string {
	color := severityColor(req.Severity)
	var b strings.Builder
	b.WriteString(titleStyle.Foreground(color).Render(req.Title))
	b.WriteString("\n\n")
	b.WriteString(req.Body)
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(footer)
	}
	return cardStyle.BorderForeground(color).Render(b.String())
}
