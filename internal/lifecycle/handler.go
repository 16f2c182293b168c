package lifecycle

import (
	"context"

	"github.com/copilot-notifier/copilot-notifier/internal/activity"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// Handler receives everything the Loop decides is worth an alert.
// It is satisfied by *notify.Handler but defined here so tests can record
// calls without a dispatcher.
//
// Calls are made from the Loop goroutine and must not block on delivery.
type Handler interface {
	OnSignal(ctx context.Context, sig activity.Signal)
	OnSuggestion(ctx context.Context, s notify.Suggestion)
}

// deliverSignal calls OnSignal with panic recovery so a faulty handler
// cannot stop the loop
func deliverSignal(ctx context.Context, h Handler, sig activity.Signal) (err any) {
	if h == nil {
		return nil
	}
	defer func() { err = recover() }()
	h.OnSignal(ctx, sig)
	return nil
}

// deliverSuggestion calls OnSuggestion with panic recovery
func deliverSuggestion(ctx context.Context, h Handler, s notify.Suggestion) (err any) {
	if h == nil {
		return nil
	}
	defer func() { err = recover() }()
	h.OnSuggestion(ctx, s)
	return nil
}
