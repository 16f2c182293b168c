package notify

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrPlatformUnsupported is reported by a gated strategy on a foreign platform.
	// The Dispatcher reacts by jumping straight to the universal fallback.
	ErrPlatformUnsupported = errors.New("platform not supported")
	// ErrToolUnavailable is reported when a strategy's external tool or service is missing
	ErrToolUnavailable = errors.New("notification tool unavailable")
	// ErrChainAbandoned is attached to results of chains cut short by Dispatcher.Close
	ErrChainAbandoned = errors.New("delivery chain abandoned")
)

// Outcome is the result of one strategy attempt. A nil Err means Delivered.
type Outcome struct {
	Strategy string
	Err      error
}

// Delivered reports whether the attempt presented the alert
func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Strategy is one concrete mechanism for presenting an alert.
//
// Attempt must not block on its own I/O: it may return before the
// mechanism completes and report the outcome later through done, from any
// goroutine. done must be called exactly once; later calls are ignored.
// Sound is the strategy's own concern: when req.WantsSound is set it plays
// a cue itself if the mechanism supports one.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req Request, done func(Outcome))
}

// Prober is implemented by strategies that can report availability up front.
// It is used for diagnostics only; the chain always relies on Attempt.
type Prober interface {
	Available() bool
}

// Platform returns the current operating system name
func Platform() string {
	return runtime.GOOS
}

// Gate restricts s to the given GOOS. On any other platform Attempt fails
// synchronously with ErrPlatformUnsupported without touching the mechanism.
func Gate(goos string, s Strategy) Strategy {
	return gate(Platform(), goos, s)
}

func gate(current, goos string, s Strategy) Strategy {
	return &gatedStrategy{current: current, goos: goos, inner: s}
}

type gatedStrategy struct {
	current string
	goos    string
	inner   Strategy
}

func (g *gatedStrategy) Name() string { return g.inner.Name() }

func (g *gatedStrategy) Attempt(ctx context.Context, req Request, done func(Outcome)) {
	if g.current != g.goos {
		done(Outcome{
			Strategy: g.inner.Name(),
			Err:      fmt.Errorf("%s requires %s, running on %s: %w", g.inner.Name(), g.goos, g.current, ErrPlatformUnsupported),
		})
		return
	}
	g.inner.Attempt(ctx, req, done)
}

// Available is false on a foreign platform, otherwise defers to the wrapped strategy
func (g *gatedStrategy) Available() bool {
	if g.current != g.goos {
		return false
	}
	if p, ok := g.inner.(Prober); ok {
		return p.Available()
	}
	return true
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc struct {
	ID string
	Fn func(ctx context.Context, req Request, done func(Outcome))
}

// Name returns the strategy ID
func (f StrategyFunc) Name() string { return f.ID }

// Attempt calls Fn
func (f StrategyFunc) Attempt(ctx context.Context, req Request, done func(Outcome)) {
	f.Fn(ctx, req, done)
}
