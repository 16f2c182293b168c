// Package activity infers AI code-completion sessions from a stream of
// editor text-change events.
//
// The Monitor is a pure state machine over (edit stream, thresholds): it
// performs no I/O and owns no goroutines or OS timers. Time enters only
// through the timestamps passed to OnEdit, OnFocusChange and Advance, which
// makes every transition reproducible in tests. A driver such as
// lifecycle.Loop feeds events in arrival order and calls Advance when
// NextDeadline is reached.
//
// The inference is heuristic. A large jump in document length is taken as
// evidence of an accepted suggestion, and a pause after a burst of edits is
// taken as a possible continuation prompt. Neither is confirmed by the
// completion tool itself.
package activity

import "time"

// State is the Monitor's session state
type State int

const (
	// Idle means no session is in progress
	Idle State = iota
	// Active means a session is in progress
	Active
)

// String returns the lowercase state name
func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Session is the inferred unit of continuous AI-assisted editing.
// Only the Monitor mutates it; Session() hands out copies.
type Session struct {
	Active                 bool
	LastActivityAt         time.Time
	LastObservedTextLength int
}

// Monitor turns edit and focus events into lifecycle signals.
// It is not safe for concurrent use; callers serialize access the same way
// lifecycle.Loop does.
type Monitor struct {
	settings   Settings
	session    Session
	inactivity scopedTimer
	rapid      scopedTimer
	disposed   bool
}

// New creates a Monitor in the Idle state with the given settings
func New(settings Settings) *Monitor {
	return &Monitor{settings: settings.normalized()}
}

// Settings returns the current settings snapshot
func (m *Monitor) Settings() Settings {
	return m.settings
}

// State returns Active when a session is in progress
func (m *Monitor) State() State {
	if m.session.Active {
		return Active
	}
	return Idle
}

// Session returns a copy of the current session record
func (m *Monitor) Session() Session {
	return m.session
}

// inert reports whether inputs must be ignored
func (m *Monitor) inert() bool {
	return m.disposed || !m.settings.MonitoringEnabled
}

// OnEdit records a text mutation of the focused document.
//
// Any timer that fell due at or before now fires first, so a late edit can
// not keep a session alive that already timed out. The edit then updates the
// session record, resets both timers, and emits SessionStarted when the
// absolute length delta reaches the burst threshold while Idle.
// Negative lengths are clamped to zero.
func (m *Monitor) OnEdit(length int, now time.Time) []Signal {
	if m.inert() {
		return nil
	}
	signals := m.advance(now)

	length = clamp(length)
	delta := abs(length - m.session.LastObservedTextLength)
	m.session.LastObservedTextLength = length
	m.session.LastActivityAt = now

	m.inactivity.reset(now.Add(m.settings.InactivityTimeout))
	m.rapid.reset(now.Add(m.settings.RapidTypingWindow))

	if !m.session.Active && delta >= m.settings.BurstDeltaThreshold {
		m.session.Active = true
		signals = append(signals, Signal{Kind: SessionStarted, At: now, TextLength: length})
	}
	return signals
}

// OnFocusChange records a switch to another document.
// During an active session it emits SessionInterrupted without leaving
// Active. In every state it re-baselines the observed length to the new
// document and resets the inactivity timer.
func (m *Monitor) OnFocusChange(length int, now time.Time) []Signal {
	if m.inert() {
		return nil
	}
	signals := m.advance(now)

	length = clamp(length)
	m.session.LastObservedTextLength = length
	m.session.LastActivityAt = now
	m.inactivity.reset(now.Add(m.settings.InactivityTimeout))

	if m.session.Active {
		signals = append(signals, Signal{Kind: SessionInterrupted, At: now, TextLength: length})
	}
	return signals
}

// Advance fires every timer whose deadline is at or before now, in deadline order
func (m *Monitor) Advance(now time.Time) []Signal {
	if m.inert() {
		return nil
	}
	return m.advance(now)
}

func (m *Monitor) advance(now time.Time) []Signal {
	var signals []Signal
	for {
		rapidDue := m.rapid.due(now)
		inactivityDue := m.inactivity.due(now)
		if !rapidDue && !inactivityDue {
			return signals
		}

		// On equal deadlines the continuation check runs before the session ends.
		if rapidDue && (!inactivityDue || !m.inactivity.deadline.Before(m.rapid.deadline)) {
			at := m.rapid.deadline
			m.rapid.cancel()
			if m.session.Active {
				signals = append(signals, Signal{Kind: ContinuationSuspected, At: at, TextLength: m.session.LastObservedTextLength})
			}
			continue
		}

		at := m.inactivity.deadline
		m.inactivity.cancel()
		if m.session.Active {
			m.session.Active = false
			signals = append(signals, Signal{Kind: SessionEnded, At: at, TextLength: m.session.LastObservedTextLength})
		}
	}
}

// NextDeadline returns the earliest armed timer deadline.
// The boolean is false when no timer is armed or the monitor is inert.
func (m *Monitor) NextDeadline() (time.Time, bool) {
	if m.inert() {
		return time.Time{}, false
	}
	switch {
	case m.rapid.armed && m.inactivity.armed:
		if m.rapid.deadline.Before(m.inactivity.deadline) {
			return m.rapid.deadline, true
		}
		return m.inactivity.deadline, true
	case m.rapid.armed:
		return m.rapid.deadline, true
	case m.inactivity.armed:
		return m.inactivity.deadline, true
	default:
		return time.Time{}, false
	}
}

// ApplySettings replaces the settings snapshot wholesale.
//
// Disabling monitoring cancels both timers and drops any session without
// emitting a signal. Enabling it again starts over from a fresh Idle state.
// Timers already armed keep their deadlines; new thresholds apply from the
// next reset.
func (m *Monitor) ApplySettings(s Settings) {
	if m.disposed {
		return
	}
	wasEnabled := m.settings.MonitoringEnabled
	m.settings = s.normalized()

	if !m.settings.MonitoringEnabled {
		m.inactivity.cancel()
		m.rapid.cancel()
		m.session = Session{}
		return
	}
	if !wasEnabled {
		m.session = Session{}
	}
}

// Dispose cancels all timers; every later call is a no-op
func (m *Monitor) Dispose() {
	m.inactivity.cancel()
	m.rapid.cancel()
	m.session.Active = false
	m.disposed = true
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
