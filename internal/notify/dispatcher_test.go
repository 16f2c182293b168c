package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r, ok := <-results:
		require.True(t, ok, "result channel closed without a result")
		_, more := <-results
		assert.False(t, more, "result channel must be closed after one result")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery result")
		return Result{}
	}
}

func testRequest() Request {
	return NewRequest("title", "body", SeverityInfo, false)
}

func TestDispatcher_FallsThroughToFirstSuccess(t *testing.T) {
	t.Parallel()
	a, b, c, d := fail("a"), fail("b"), succeed("c"), succeed("d")
	disp := NewDispatcher([]Strategy{a, b, c}, d, nil)

	r := receive(t, disp.Dispatch(context.Background(), testRequest()))

	assert.True(t, r.Delivered)
	assert.Equal(t, "c", r.Strategy)
	assert.NoError(t, r.Err)
	require.Len(t, r.Failures, 2)
	assert.Equal(t, "a", r.Failures[0].Strategy)
	assert.Equal(t, "b", r.Failures[1].Strategy)
	assert.Equal(t, 1, a.Attempts())
	assert.Equal(t, 1, b.Attempts())
	assert.Equal(t, 1, c.Attempts())
	assert.Zero(t, d.Attempts(), "fallback must not run after a delivery")
	assert.Zero(t, disp.InFlight())
}

func TestDispatcher_AsyncFailuresAdvance(t *testing.T) {
	t.Parallel()
	a, b := fail("a").deferred(), succeed("b").deferred()
	disp := NewDispatcher([]Strategy{a}, b, nil)

	results := disp.Dispatch(context.Background(), testRequest())
	assert.Equal(t, 1, disp.InFlight())
	assert.Zero(t, b.Attempts(), "next strategy waits for the previous outcome")

	close(a.release)
	require.Eventually(t, func() bool { return b.Attempts() == 1 }, time.Second, 5*time.Millisecond)
	close(b.release)

	r := receive(t, results)
	assert.True(t, r.Delivered)
	assert.Equal(t, "b", r.Strategy)
}

func TestDispatcher_LateCallbacksIgnored(t *testing.T) {
	t.Parallel()

	t.Run("failure after delivery", func(t *testing.T) {
		t.Parallel()
		a, b := succeed("a"), succeed("b")
		disp := NewDispatcher([]Strategy{a}, b, nil)

		r := receive(t, disp.Dispatch(context.Background(), testRequest()))
		require.True(t, r.Delivered)

		assert.NotPanics(t, func() {
			a.report(Outcome{Strategy: "a", Err: errors.New("late failure")})
		})
		assert.Zero(t, b.Attempts())
	})

	t.Run("success from a strategy the chain moved past", func(t *testing.T) {
		t.Parallel()
		a, b := fail("a"), succeed("b").deferred()
		disp := NewDispatcher([]Strategy{a}, b, nil)

		results := disp.Dispatch(context.Background(), testRequest())
		a.report(Outcome{Strategy: "a"})
		close(b.release)

		r := receive(t, results)
		assert.Equal(t, "b", r.Strategy)
	})
}

func TestDispatcher_Exhaustion(t *testing.T) {
	t.Parallel()
	disp := NewDispatcher([]Strategy{fail("a"), fail("b")}, fail("fallback"), nil)

	r := receive(t, disp.Dispatch(context.Background(), testRequest()))

	assert.False(t, r.Delivered)
	assert.Empty(t, r.Strategy)
	assert.Len(t, r.Failures, 3)
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "fallback failed")
}

func TestDispatcher_PlatformGateSkipsToFallback(t *testing.T) {
	t.Parallel()
	native, other, fallback := succeed("native"), succeed("other"), succeed("surface")
	disp := NewDispatcher([]Strategy{gate("linux", "darwin", native), other}, fallback, nil)

	r := receive(t, disp.Dispatch(context.Background(), testRequest()))

	assert.True(t, r.Delivered)
	assert.Equal(t, "surface", r.Strategy)
	assert.Zero(t, native.Attempts(), "gated mechanism must not be touched")
	assert.Zero(t, other.Attempts(), "remaining strategies are skipped")
	require.Len(t, r.Failures, 1)
	assert.ErrorIs(t, r.Failures[0].Err, ErrPlatformUnsupported)
}

func TestDispatcher_Close(t *testing.T) {
	t.Parallel()
	a, b := fail("a").deferred(), succeed("b")
	disp := NewDispatcher([]Strategy{a}, b, nil)

	results := disp.Dispatch(context.Background(), testRequest())
	disp.Close()

	r := receive(t, results)
	assert.False(t, r.Delivered)
	assert.ErrorIs(t, r.Err, ErrChainAbandoned)
	assert.Zero(t, disp.InFlight())

	close(a.release)
	assert.Never(t, func() bool { return b.Attempts() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	after := receive(t, disp.Dispatch(context.Background(), testRequest()))
	assert.ErrorIs(t, after.Err, ErrChainAbandoned)
}

func TestDispatcher_CloseBetweenSteps(t *testing.T) {
	t.Parallel()
	a, b := fail("a"), succeed("b")
	disp := NewDispatcher([]Strategy{a}, b, nil)
	disp.beforeAttempt = func(step int) {
		if step == 1 {
			disp.Close()
		}
	}

	r := receive(t, disp.Dispatch(context.Background(), testRequest()))

	assert.False(t, r.Delivered)
	assert.ErrorIs(t, r.Err, ErrChainAbandoned)
	assert.Equal(t, 1, a.Attempts())
	assert.Zero(t, b.Attempts(), "no strategy starts after Close")
	assert.Zero(t, disp.InFlight())
}

func TestDispatcher_EdgeCases(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		strategies    []Strategy
		fallback      Strategy
		wantDelivered bool
		wantStrategy  string
	}{
		"no strategies": {},
		"fallback only": {fallback: succeed("surface"), wantDelivered: true, wantStrategy: "surface"},
		"panicking strategy counts as failure": {
			strategies: []Strategy{StrategyFunc{ID: "boom", Fn: func(context.Context, Request, func(Outcome)) {
				panic("boom")
			}}},
			fallback:      succeed("surface"),
			wantDelivered: true,
			wantStrategy:  "surface",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			disp := NewDispatcher(tt.strategies, tt.fallback, nil)
			r := receive(t, disp.Dispatch(context.Background(), testRequest()))
			assert.Equal(t, tt.wantDelivered, r.Delivered)
			assert.Equal(t, tt.wantStrategy, r.Strategy)
		})
	}
}

func TestDispatcher_IndependentChains(t *testing.T) {
	t.Parallel()
	a := succeed("a")
	disp := NewDispatcher([]Strategy{a}, nil, nil)

	first := disp.Dispatch(context.Background(), NewRequest("one", "1", SeverityInfo, false))
	second := disp.Dispatch(context.Background(), NewRequest("two", "2", SeverityInfo, false))

	assert.Equal(t, "one", receive(t, first).Request.Title)
	assert.Equal(t, "two", receive(t, second).Request.Title)
	assert.Equal(t, 2, a.Attempts())
}

func TestGate_Available(t *testing.T) {
	t.Parallel()
	runner := newFakeRunner()
	s := &execStrategy{name: "x", tool: "x", runner: runner}

	assert.True(t, gate("linux", "linux", s).(Prober).Available())
	assert.False(t, gate("windows", "linux", s).(Prober).Available())

	runner.missing["x"] = true
	assert.False(t, gate("linux", "linux", s).(Prober).Available())
}
