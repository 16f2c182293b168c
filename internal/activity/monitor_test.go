package activity

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func scenarioSettings() Settings {
	return Settings{
		MonitoringEnabled:   true,
		BurstDeltaThreshold: 20,
		InactivityTimeout:   30 * time.Second,
		RapidTypingWindow:   time.Second,
	}
}

func kinds(signals []Signal) []SignalKind {
	out := make([]SignalKind, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Kind)
	}
	return out
}

func TestMonitor_EndToEndScenario(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())

	assert.Empty(t, m.OnEdit(5, at(0)), "delta 5 is below the burst threshold")
	assert.Equal(t, Idle, m.State())

	signals := m.OnEdit(40, at(100))
	require.Len(t, signals, 1)
	assert.Equal(t, SessionStarted, signals[0].Kind)
	assert.Equal(t, at(100), signals[0].At)
	assert.Equal(t, Active, m.State())

	assert.Equal(t, []SignalKind{ContinuationSuspected}, kinds(m.Advance(at(1100))))
	assert.Empty(t, m.Advance(at(30099)))
	assert.Equal(t, Active, m.State())

	// Nothing else arrives until t=31100; the session ended one timeout
	// after the last edit.
	signals = m.Advance(at(31100))
	require.Len(t, signals, 1)
	assert.Equal(t, SessionEnded, signals[0].Kind)
	assert.Equal(t, at(30100), signals[0].At)
	assert.Equal(t, Idle, m.State())
}

func TestMonitor_BurstThreshold(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		from, to    int
		wantStarted bool
	}{
		"delta below threshold": {from: 0, to: 19, wantStarted: false},
		"delta equal threshold": {from: 0, to: 20, wantStarted: true},
		"delta above threshold": {from: 0, to: 300, wantStarted: true},
		"large deletion counts": {from: 100, to: 10, wantStarted: true},
		"small deletion ignored": {from: 100, to: 95, wantStarted: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := New(scenarioSettings())
			m.OnFocusChange(tt.from, at(0))

			signals := m.OnEdit(tt.to, at(10))
			if tt.wantStarted {
				assert.Equal(t, []SignalKind{SessionStarted}, kinds(signals))
				assert.Equal(t, Active, m.State())
			} else {
				assert.Empty(t, signals)
				assert.Equal(t, Idle, m.State())
			}
		})
	}
}

func TestMonitor_EditResetsInactivityTimer(t *testing.T) {
	t.Parallel()
	s := scenarioSettings()
	timeout := int(s.InactivityTimeout / time.Millisecond)
	m := New(s)

	require.Equal(t, []SignalKind{SessionStarted}, kinds(m.OnEdit(50, at(0))))
	m.OnEdit(51, at(timeout-1))

	for _, ms := range []int{timeout, timeout + 5000, 2*timeout - 2} {
		for _, sig := range m.Advance(at(ms)) {
			assert.NotEqual(t, SessionEnded, sig.Kind, "session ended early at %dms", ms)
		}
	}
	assert.Equal(t, Active, m.State())

	assert.Equal(t, []SignalKind{SessionEnded}, kinds(m.Advance(at(2*timeout-1))))
}

func TestMonitor_ContinuationOnlyWhileActive(t *testing.T) {
	t.Parallel()

	t.Run("idle pause emits nothing", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(3, at(0))
		assert.Empty(t, m.Advance(at(5000)))
	})

	t.Run("fires after the window, not before", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))
		m.OnEdit(101, at(500))
		assert.Empty(t, m.Advance(at(1499)))

		signals := m.Advance(at(1500))
		require.Len(t, signals, 1)
		assert.Equal(t, ContinuationSuspected, signals[0].Kind)
		assert.Equal(t, at(1500), signals[0].At)
	})

	t.Run("fires once per pause", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))
		assert.Len(t, m.Advance(at(1000)), 1)
		assert.Empty(t, m.Advance(at(2000)))
	})
}

func TestMonitor_IdenticalEditsStartOnce(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())

	first := m.OnEdit(80, at(0))
	second := m.OnEdit(80, at(0))

	assert.Equal(t, []SignalKind{SessionStarted}, kinds(first))
	assert.Empty(t, second)
}

func TestMonitor_FocusChange(t *testing.T) {
	t.Parallel()

	t.Run("interrupts an active session and re-baselines", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))

		signals := m.OnFocusChange(5000, at(200))
		require.Len(t, signals, 1)
		assert.Equal(t, SessionInterrupted, signals[0].Kind)
		assert.Equal(t, Active, m.State())
		assert.Equal(t, 5000, m.Session().LastObservedTextLength)

		assert.Empty(t, m.OnEdit(5005, at(300)), "no new start after re-baseline")
	})

	t.Run("is silent while idle", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		assert.Empty(t, m.OnFocusChange(9000, at(0)))
		assert.Empty(t, m.OnEdit(9001, at(10)), "new document length is the baseline")
	})

	t.Run("resets the inactivity timer", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))
		m.OnFocusChange(100, at(20000))
		assert.NotContains(t, kinds(m.Advance(at(30000))), SessionEnded)
		assert.Contains(t, kinds(m.Advance(at(50000))), SessionEnded)
	})
}

func TestMonitor_LateEditFiresDueTimersFirst(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())
	m.OnEdit(100, at(0))

	signals := m.OnEdit(300, at(60000))
	assert.Equal(t, []SignalKind{ContinuationSuspected, SessionEnded, SessionStarted}, kinds(signals))
	assert.Equal(t, at(1000), signals[0].At)
	assert.Equal(t, at(30000), signals[1].At)
	assert.Equal(t, Active, m.State())
}

func TestMonitor_ClampsNegativeLength(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())

	require.NotPanics(t, func() {
		m.OnEdit(-50, at(0))
		m.OnFocusChange(-1, at(10))
	})
	assert.Equal(t, 0, m.Session().LastObservedTextLength)
}

func TestMonitor_DisabledIsInert(t *testing.T) {
	t.Parallel()
	s := scenarioSettings()
	s.MonitoringEnabled = false
	m := New(s)

	assert.Empty(t, m.OnEdit(500, at(0)))
	assert.Empty(t, m.OnFocusChange(10, at(10)))
	assert.Empty(t, m.Advance(at(100000)))
	_, ok := m.NextDeadline()
	assert.False(t, ok)
	assert.Equal(t, Idle, m.State())
}

func TestMonitor_ApplySettings(t *testing.T) {
	t.Parallel()

	t.Run("disable drops session silently", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))

		off := scenarioSettings()
		off.MonitoringEnabled = false
		m.ApplySettings(off)
		assert.Equal(t, Idle, m.State())
		assert.Empty(t, m.Advance(at(60000)))
	})

	t.Run("re-enable re-arms from idle", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		m.OnEdit(100, at(0))

		off := scenarioSettings()
		off.MonitoringEnabled = false
		m.ApplySettings(off)
		m.ApplySettings(scenarioSettings())

		assert.Equal(t, Idle, m.State())
		assert.Equal(t, Session{}, m.Session())
		assert.Equal(t, []SignalKind{SessionStarted}, kinds(m.OnEdit(100, at(70000))))
	})

	t.Run("new threshold applies to next edit", func(t *testing.T) {
		t.Parallel()
		m := New(scenarioSettings())
		strict := scenarioSettings()
		strict.BurstDeltaThreshold = 500
		m.ApplySettings(strict)

		assert.Empty(t, m.OnEdit(100, at(0)))
		assert.Equal(t, 500, m.Settings().BurstDeltaThreshold)
	})

	t.Run("non-positive thresholds fall back to defaults", func(t *testing.T) {
		t.Parallel()
		m := New(Settings{MonitoringEnabled: true})
		assert.Equal(t, DefaultSettings(), m.Settings())
	})
}

func TestMonitor_NextDeadline(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())

	_, ok := m.NextDeadline()
	assert.False(t, ok, "no timers before the first edit")

	m.OnEdit(100, at(0))
	d, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, at(1000), d)

	m.Advance(at(1000))
	d, ok = m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, at(30000), d)

	m.Advance(at(30000))
	_, ok = m.NextDeadline()
	assert.False(t, ok)
}

func TestMonitor_Dispose(t *testing.T) {
	t.Parallel()
	m := New(scenarioSettings())
	m.OnEdit(100, at(0))
	m.Dispose()

	assert.Empty(t, m.Advance(at(60000)))
	assert.Empty(t, m.OnEdit(500, at(60001)))
	m.ApplySettings(scenarioSettings())
	assert.Empty(t, m.OnEdit(5000, at(60002)))
	assert.Equal(t, Idle, m.State())
}

// TestMonitor_ActiveIffRecentBurst drives a pseudo-random edit stream and
// checks after every step that the session is active exactly when a burst
// started it and the last edit is younger than the inactivity timeout.
func TestMonitor_ActiveIffRecentBurst(t *testing.T) {
	t.Parallel()
	s := scenarioSettings()
	m := New(s)
	rng := rand.New(rand.NewSource(42))

	now := epoch
	length := 0
	wantActive := false
	var lastEdit time.Time

	for i := 0; i < 2000; i++ {
		now = now.Add(time.Duration(rng.Intn(40000)) * time.Millisecond)
		if wantActive && now.Sub(lastEdit) >= s.InactivityTimeout {
			wantActive = false
		}

		if rng.Intn(4) == 0 {
			m.Advance(now)
		} else {
			next := length + rng.Intn(61) - 30
			if next < 0 {
				next = 0
			}
			if abs(next-length) >= s.BurstDeltaThreshold {
				wantActive = true
			}
			length = next
			lastEdit = now
			m.OnEdit(length, now)
		}

		require.Equal(t, wantActive, m.State() == Active, "step %d", i)
	}
}

func TestSignalKind_String(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		kind     SignalKind
		expected string
	}{
		"started":      {kind: SessionStarted, expected: "session_started"},
		"continuation": {kind: ContinuationSuspected, expected: "continuation_suspected"},
		"interrupted":  {kind: SessionInterrupted, expected: "session_interrupted"},
		"ended":        {kind: SessionEnded, expected: "session_ended"},
		"unknown":      {kind: SignalKind(99), expected: "signal(99)"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}
