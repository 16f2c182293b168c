// Package lifecycle drives the activity monitor.
//
// A Loop is the only goroutine that touches its Monitor. Edits, focus
// changes, suggestions and settings snapshots are queued in arrival order,
// stamped with the time they arrived, and applied one at a time. A single
// timer is re-armed to the Monitor's next deadline after every event, so the
// inactivity and rapid-typing checks fire without a polling ticker.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copilot-notifier/copilot-notifier/internal/activity"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

const queueSize = 64

type textEvent struct {
	focus  bool
	length int
	at     time.Time
}

// Status is a point-in-time view of the loop
type Status struct {
	State       activity.State
	Session     activity.Session
	Settings    activity.Settings
	Inert       bool
	// Suggestions counts candidates received, alerted or not
	Suggestions int
}

// Loop serializes all inputs to one Monitor
type Loop struct {
	monitor *activity.Monitor
	handler Handler
	logger  *zap.Logger
	now     func() time.Time
	inert   bool

	text        chan textEvent
	suggestions chan notify.Suggestion
	settings    chan activity.Settings
	done        chan struct{}
	closeOnce   sync.Once

	mu     sync.Mutex
	status Status
}

// Option configures a Loop
type Option func(*Loop)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(loop *Loop) { loop.logger = l }
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(loop *Loop) { loop.now = now }
}

// NewLoop creates a loop over a fresh Monitor
func NewLoop(settings activity.Settings, h Handler, opts ...Option) *Loop {
	l := &Loop{
		monitor:     activity.New(settings),
		handler:     h,
		logger:      zap.NewNop(),
		now:         time.Now,
		text:        make(chan textEvent, queueSize),
		suggestions: make(chan notify.Suggestion, queueSize),
		settings:    make(chan activity.Settings, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	l.logger = l.logger.Named("lifecycle")
	l.status = Status{Settings: l.monitor.Settings()}
	return l
}

// Inert returns a loop that accepts and drops every input. It stands in for
// a loop whose dependencies failed to initialize; it does not retry.
func Inert(logger *zap.Logger) *Loop {
	l := NewLoop(activity.Settings{}, nil, WithLogger(logger))
	l.inert = true
	l.status.Inert = true
	return l
}

// Edit queues a text change of the focused document
func (l *Loop) Edit(length int) {
	l.enqueueText(textEvent{length: length, at: l.now()})
}

// FocusChange queues a switch to a document of the given length
func (l *Loop) FocusChange(length int) {
	l.enqueueText(textEvent{focus: true, length: length, at: l.now()})
}

func (l *Loop) enqueueText(e textEvent) {
	if l.inert {
		return
	}
	select {
	case l.text <- e:
	case <-l.done:
	}
}

// Suggest queues an observed completion candidate. An empty candidate means
// no suggestion was observed and is ignored.
func (l *Loop) Suggest(s notify.Suggestion) {
	if l.inert || s.Text == "" {
		return
	}
	select {
	case l.suggestions <- s:
	case <-l.done:
	}
}

// ApplySettings queues a settings snapshot. Only the newest pending
// snapshot is kept.
func (l *Loop) ApplySettings(s activity.Settings) {
	if l.inert {
		return
	}
	for {
		select {
		case l.settings <- s:
			return
		case <-l.done:
			return
		default:
		}
		select {
		case <-l.settings:
		default:
		}
	}
}

// Status returns the latest loop status
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes events until ctx is cancelled, then disposes the Monitor
func (l *Loop) Run(ctx context.Context) error {
	defer l.closeOnce.Do(func() { close(l.done) })
	if l.inert {
		<-ctx.Done()
		return nil
	}
	defer l.monitor.Dispose()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		l.rearm(timer)

		select {
		case <-ctx.Done():
			return nil
		case e := <-l.text:
			if e.focus {
				l.emit(ctx, l.monitor.OnFocusChange(e.length, e.at))
			} else {
				l.emit(ctx, l.monitor.OnEdit(e.length, e.at))
			}
		case s := <-l.suggestions:
			if r := deliverSuggestion(ctx, l.handler, s); r != nil {
				l.logger.Error("suggestion handler panicked", zap.Any("panic", r))
			}
			l.mu.Lock()
			l.status.Suggestions++
			l.mu.Unlock()
		case s := <-l.settings:
			l.monitor.ApplySettings(s)
			l.logger.Debug("settings applied", zap.Bool("monitoring", s.MonitoringEnabled))
		case <-timer.C:
			l.emit(ctx, l.monitor.Advance(l.now()))
		}
		l.snapshot()
	}
}

func (l *Loop) rearm(timer *time.Timer) {
	deadline, ok := l.monitor.NextDeadline()
	if !ok {
		timer.Stop()
		return
	}
	wait := deadline.Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
}

func (l *Loop) emit(ctx context.Context, signals []activity.Signal) {
	for _, sig := range signals {
		l.logger.Info("session signal",
			zap.Stringer("signal", sig.Kind),
			zap.Time("at", sig.At),
			zap.Int("length", sig.TextLength))
		if r := deliverSignal(ctx, l.handler, sig); r != nil {
			l.logger.Error("signal handler panicked", zap.Stringer("signal", sig.Kind), zap.Any("panic", r))
		}
	}
}

func (l *Loop) snapshot() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.State = l.monitor.State()
	l.status.Session = l.monitor.Session()
	l.status.Settings = l.monitor.Settings()
}
