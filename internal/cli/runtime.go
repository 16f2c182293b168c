package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/logging"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// newLogger builds the logger from config, honoring --log-level and --debug
func newLogger(cmd *cobra.Command, cfg *config.Configuration) *zap.Logger {
	level := cfg.Log.Level
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: cfg.Log.Format})
}

// liveDispatcher rebuilds the platform chain whenever configuration changes.
// Chains already in flight finish on the dispatcher that started them.
type liveDispatcher struct {
	fallback notify.Strategy
	logger   *zap.Logger

	mu      sync.Mutex
	current *notify.Dispatcher
	all     []*notify.Dispatcher
}

func newLiveDispatcher(cfg *config.Configuration, fallback notify.Strategy, logger *zap.Logger) *liveDispatcher {
	d := &liveDispatcher{fallback: fallback, logger: logger}
	d.Rebuild(cfg)
	return d
}

// Rebuild swaps in a dispatcher for cfg and forgets replaced dispatchers
// that have nothing in flight
func (d *liveDispatcher) Rebuild(cfg *config.Configuration) {
	next := notify.NewDispatcher(notify.DefaultStrategies(cfg.StrategyOptions(d.logger)), d.fallback, d.logger)
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.all[:0]
	for _, old := range d.all {
		if old.InFlight() > 0 {
			kept = append(kept, old)
		}
	}
	d.current = next
	d.all = append(kept, next)
}

// Dispatch implements notify.Deliverer. The lock is held so Rebuild cannot
// drop the dispatcher before the chain registers.
func (d *liveDispatcher) Dispatch(ctx context.Context, req notify.Request) <-chan notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.Dispatch(ctx, req)
}

// tracked returns how many dispatchers Close would abandon
func (d *liveDispatcher) tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.all)
}

// Strategies returns the current chain including the fallback
func (d *liveDispatcher) Strategies() []notify.Strategy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.Strategies()
}

// Close abandons every chain still in flight
func (d *liveDispatcher) Close() {
	d.mu.Lock()
	all := d.all
	d.all = nil
	d.mu.Unlock()
	for _, disp := range all {
		disp.Close()
	}
}
