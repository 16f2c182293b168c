// Package surface is the universal fallback alert: a card drawn in the
// terminal the notifier runs in.
//
// On an interactive terminal the card is a small Bubble Tea program with a
// countdown bar. Sound needs a user gesture there, so the card asks for a
// key press before it rings the terminal bell. Without a terminal the card
// is printed once as plain text.
package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

const (
	// Name identifies the surface in delivery chains and history
	Name = "terminal-surface"
	// DefaultLifetime is how long a card stays up without interaction
	DefaultLifetime = 15 * time.Second
	// DefaultCloseAfterSound is how long a card stays up after the bell
	DefaultCloseAfterSound = 3 * time.Second
)

// Options configures a Surface
type Options struct {
	In  io.Reader
	Out io.Writer

	Lifetime        time.Duration
	CloseAfterSound time.Duration

	// Interactive forces the Bubble Tea card on or off; nil detects a terminal on Out
	Interactive *bool

	Logger *zap.Logger
}

// Surface shows alerts in the terminal. It implements notify.Strategy.
// At most one card is on screen; a new alert replaces the visible one.
type Surface struct {
	in          io.Reader
	out         io.Writer
	lifetime    time.Duration
	afterBell   time.Duration
	interactive bool
	logger      *zap.Logger

	mu      sync.Mutex
	card    *card
	closed  bool
	running sync.WaitGroup
}

// card is one running Bubble Tea program; exited closes after the program
// is no longer the Surface's card
type card struct {
	program *tea.Program
	exited  chan struct{}
}

// errClosed is reported for alerts arriving after Close
var errClosed = errors.New("surface closed")

// New creates a Surface
func New(opts Options) *Surface {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	if opts.CloseAfterSound <= 0 {
		opts.CloseAfterSound = DefaultCloseAfterSound
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	interactive := isTerminal(opts.Out)
	if opts.Interactive != nil {
		interactive = *opts.Interactive
	}

	return &Surface{
		in:          opts.In,
		out:         opts.Out,
		lifetime:    opts.Lifetime,
		afterBell:   opts.CloseAfterSound,
		interactive: interactive,
		logger:      opts.Logger.Named("surface"),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Name returns the strategy name
func (s *Surface) Name() string { return Name }

// Available is always true: the terminal is the last resort
func (s *Surface) Available() bool { return true }

// Attempt shows req and reports delivery once a card has taken it.
// The card outlives ctx; it closes on its own timer, on a key press, or on Close.
func (s *Surface) Attempt(ctx context.Context, req notify.Request, done func(notify.Outcome)) {
	if !s.interactive {
		_, err := fmt.Fprintln(s.out, renderCard(req, ""))
		if err != nil {
			err = fmt.Errorf("%s: %w", Name, err)
		}
		done(notify.Outcome{Strategy: Name, Err: err})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done(notify.Outcome{Strategy: Name, Err: fmt.Errorf("%s: %w", Name, errClosed)})
		return
	}
	if c := s.card; c != nil {
		s.mu.Unlock()
		go s.replace(ctx, c, req, done)
		return
	}

	m := newModel(req, s.lifetime, s.afterBell, s.ringBell, time.Now())
	c := &card{
		program: tea.NewProgram(m, tea.WithInput(s.in), tea.WithOutput(s.out), tea.WithoutSignalHandler()),
		exited:  make(chan struct{}),
	}
	s.card = c
	s.running.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.running.Done()
		if _, err := c.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			s.logger.Debug("surface program exited", zap.Error(err))
		}
		s.mu.Lock()
		if s.card == c {
			s.card = nil
		}
		s.mu.Unlock()
		close(c.exited)
	}()

	done(notify.Outcome{Strategy: Name})
}

// replace hands req to the visible card. A card that exits before taking
// the alert did not show it, so the alert starts a new card instead.
func (s *Surface) replace(ctx context.Context, c *card, req notify.Request, done func(notify.Outcome)) {
	ack := make(chan struct{})
	c.program.Send(alertMsg{req: req, ack: ack})

	select {
	case <-ack:
		done(notify.Outcome{Strategy: Name})
	case <-c.exited:
		select {
		case <-ack:
			done(notify.Outcome{Strategy: Name})
		default:
			s.logger.Debug("card closed before taking the alert, reopening", zap.String("request_id", req.ID))
			s.Attempt(ctx, req, done)
		}
	}
}

func (s *Surface) ringBell() {
	if _, err := io.WriteString(s.out, "\a"); err != nil {
		s.logger.Debug("terminal bell failed", zap.Error(err))
	}
}

// Showing reports whether a card is on screen
func (s *Surface) Showing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card != nil
}

// Wait blocks until the visible card, if any, closes on its own
func (s *Surface) Wait() {
	s.running.Wait()
}

// Close removes any visible card, waits for its program to exit, and
// refuses later alerts
func (s *Surface) Close() {
	s.mu.Lock()
	s.closed = true
	c := s.card
	s.mu.Unlock()
	if c != nil {
		c.program.Kill()
	}
	s.running.Wait()
}
