package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Result is the terminal state of one delivery chain
type Result struct {
	Request Request

	// Delivered is true when a strategy presented the alert
	Delivered bool

	// Strategy names the strategy that delivered (empty otherwise)
	Strategy string

	// Failures lists every failed attempt in chain order
	Failures []Outcome

	// Err is nil on delivery, wraps ErrChainAbandoned when closed, and
	// joins the failure reasons when every strategy failed
	Err error
}

// Dispatcher drives delivery chains.
//
// Each Dispatch builds a fresh chain from the configured strategies plus the
// universal fallback. Chains are independent: requests are neither queued
// nor coalesced. A chain keeps a cursor into its strategy list and a
// completion flag, so a late callback from a strategy the chain already
// moved past, or from a chain that already finished, is ignored.
type Dispatcher struct {
	strategies []Strategy
	fallback   Strategy
	logger     *zap.Logger

	mu     sync.Mutex
	chains map[*chain]struct{}
	closed bool

	// beforeAttempt runs ahead of each strategy step (tests)
	beforeAttempt func(step int)
}

// NewDispatcher creates a dispatcher over the ordered strategies.
// fallback may be nil; when set it always runs last and is also the target
// of the platform-gate short circuit.
func NewDispatcher(strategies []Strategy, fallback Strategy, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		strategies: append([]Strategy(nil), strategies...),
		fallback:   fallback,
		logger:     logger.Named("dispatch"),
		chains:     make(map[*chain]struct{}),
	}
}

// Strategies returns the ordered strategy list including the fallback
func (d *Dispatcher) Strategies() []Strategy {
	steps := append([]Strategy(nil), d.strategies...)
	if d.fallback != nil {
		steps = append(steps, d.fallback)
	}
	return steps
}

// Dispatch starts delivering req and returns immediately.
// The returned channel receives exactly one Result and is then closed.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	steps := d.Strategies()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		out <- Result{Request: req, Err: ErrChainAbandoned}
		close(out)
		return out
	}
	if len(steps) == 0 {
		d.mu.Unlock()
		out <- Result{Request: req, Err: errors.New("no delivery strategies configured")}
		close(out)
		return out
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &chain{
		d:        d,
		req:      req,
		steps:    steps,
		fallback: d.fallback != nil,
		ctx:      cctx,
		cancel:   cancel,
		out:      out,
	}
	d.chains[c] = struct{}{}
	d.mu.Unlock()

	d.logger.Debug("dispatching alert",
		zap.String("request_id", req.ID),
		zap.String("title", req.Title),
		zap.Int("strategies", len(steps)))
	c.attempt(0)
	return out
}

// InFlight returns the number of chains that have not finished
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.chains)
}

// Close abandons every in-flight chain. No further strategy is invoked
// and late callbacks cannot deliver. Dispatch after Close returns an
// abandoned result immediately.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	chains := make([]*chain, 0, len(d.chains))
	for c := range d.chains {
		c.done = true
		chains = append(chains, c)
	}
	d.chains = make(map[*chain]struct{})
	d.mu.Unlock()

	for _, c := range chains {
		c.cancel()
		c.out <- Result{Request: c.req, Failures: c.failures, Err: ErrChainAbandoned}
		close(c.out)
	}
}

type chain struct {
	d        *Dispatcher
	req      Request
	steps    []Strategy
	fallback bool
	ctx      context.Context
	cancel   context.CancelFunc
	out      chan Result

	// guarded by d.mu
	cursor   int
	done     bool
	failures []Outcome
}

func (c *chain) attempt(i int) {
	if c.d.beforeAttempt != nil {
		c.d.beforeAttempt(i)
	}
	c.d.mu.Lock()
	abandoned := c.done
	c.d.mu.Unlock()
	if abandoned {
		return
	}

	s := c.steps[i]
	var once sync.Once
	report := func(o Outcome) {
		once.Do(func() { c.report(i, o) })
	}

	defer func() {
		if r := recover(); r != nil {
			report(Outcome{Strategy: s.Name(), Err: fmt.Errorf("%s panicked: %v", s.Name(), r)})
		}
	}()
	s.Attempt(c.ctx, c.req, report)
}

func (c *chain) report(i int, o Outcome) {
	if o.Strategy == "" {
		o.Strategy = c.steps[i].Name()
	}
	log := c.d.logger.With(zap.String("request_id", c.req.ID), zap.String("strategy", o.Strategy))

	c.d.mu.Lock()
	if c.done || i != c.cursor {
		c.d.mu.Unlock()
		log.Debug("ignoring late outcome", zap.Bool("delivered", o.Delivered()))
		return
	}

	if o.Delivered() {
		c.finishLocked()
		c.d.mu.Unlock()
		log.Debug("alert delivered")
		c.emit(Result{Request: c.req, Delivered: true, Strategy: o.Strategy, Failures: c.failures})
		return
	}

	c.failures = append(c.failures, o)
	log.Debug("strategy failed", zap.Error(o.Err))

	next := i + 1
	last := len(c.steps) - 1
	if errors.Is(o.Err, ErrPlatformUnsupported) && c.fallback && i < last {
		next = last
	}
	if next > last {
		c.finishLocked()
		c.d.mu.Unlock()
		err := exhaustedError(c.failures)
		log.Warn("all delivery strategies failed", zap.Int("attempts", len(c.failures)), zap.Error(err))
		c.emit(Result{Request: c.req, Failures: c.failures, Err: err})
		return
	}
	c.cursor = next
	c.d.mu.Unlock()

	c.attempt(next)
}

// finishLocked marks the chain complete and unregisters it; d.mu must be held
func (c *chain) finishLocked() {
	c.done = true
	delete(c.d.chains, c)
}

func (c *chain) emit(r Result) {
	c.cancel()
	c.out <- r
	close(c.out)
}

func exhaustedError(failures []Outcome) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	return fmt.Errorf("delivery exhausted after %d attempts: %w", len(failures), errors.Join(errs...))
}
