package activity

import (
	"fmt"
	"time"
)

// SignalKind identifies a session lifecycle signal
type SignalKind int

const (
	// SessionStarted is emitted when a qualifying edit burst moves the monitor from Idle to Active
	SessionStarted SignalKind = iota + 1
	// ContinuationSuspected is emitted when an active session pauses for the rapid-typing window.
	// It is a heuristic guess that the completion tool is showing a follow-up prompt, never a confirmed fact.
	ContinuationSuspected
	// SessionInterrupted is emitted when the focused document changes during an active session
	SessionInterrupted
	// SessionEnded is emitted when an active session sees no edits for the inactivity timeout
	SessionEnded
)

// String returns the snake_case name of the signal kind
func (k SignalKind) String() string {
	switch k {
	case SessionStarted:
		return "session_started"
	case ContinuationSuspected:
		return "continuation_suspected"
	case SessionInterrupted:
		return "session_interrupted"
	case SessionEnded:
		return "session_ended"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// Signal is one lifecycle event produced by the Monitor.
// At is the instant the triggering condition became true, which for timer
// driven signals is the timer deadline rather than the time Advance was called.
type Signal struct {
	Kind       SignalKind
	At         time.Time
	TextLength int
}
