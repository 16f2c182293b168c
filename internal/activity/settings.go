package activity

import "time"

// Default thresholds, matching the shipped configuration defaults.
const (
	DefaultInactivityTimeout   = 30 * time.Second
	DefaultBurstDeltaThreshold = 20
	DefaultRapidTypingWindow   = time.Second
)

// Settings holds the runtime-tunable thresholds of the Monitor.
// A Settings value is an immutable snapshot: callers replace it wholesale
// through Monitor.ApplySettings and never mutate a live copy.
type Settings struct {
	// MonitoringEnabled turns every Monitor input into a no-op when false
	MonitoringEnabled bool

	// InactivityTimeout is how long an active session may go without edits before it ends
	InactivityTimeout time.Duration

	// BurstDeltaThreshold is the minimum absolute text-length change, in characters,
	// that is treated as an inserted suggestion rather than ordinary typing
	BurstDeltaThreshold int

	// RapidTypingWindow is the pause after an edit that raises ContinuationSuspected
	RapidTypingWindow time.Duration
}

// DefaultSettings returns Settings with monitoring enabled and default thresholds
func DefaultSettings() Settings {
	return Settings{
		MonitoringEnabled:   true,
		InactivityTimeout:   DefaultInactivityTimeout,
		BurstDeltaThreshold: DefaultBurstDeltaThreshold,
		RapidTypingWindow:   DefaultRapidTypingWindow,
	}
}

// normalized replaces non-positive thresholds with their defaults
func (s Settings) normalized() Settings {
	if s.InactivityTimeout <= 0 {
		s.InactivityTimeout = DefaultInactivityTimeout
	}
	if s.BurstDeltaThreshold <= 0 {
		s.BurstDeltaThreshold = DefaultBurstDeltaThreshold
	}
	if s.RapidTypingWindow <= 0 {
		s.RapidTypingWindow = DefaultRapidTypingWindow
	}
	return s
}
