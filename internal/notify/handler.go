package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/copilot-notifier/copilot-notifier/internal/activity"
)

const (
	// SuggestionTitle is the title of suggestion alerts
	SuggestionTitle = "Copilot Suggestion"
	// StatusChangeTitle is the title of session lifecycle alerts
	StatusChangeTitle = "Copilot Status Change"
	// TestTitle is the title of the test alert
	TestTitle = "Copilot Notifier Test"
	// FlashText is shown on the status indicator while an alert is flashing
	FlashText = "New Copilot Suggestion!"
)

// Message-sink actions offered with suggestion alerts
const (
	ActionView     = "View"
	ActionDismiss  = "Dismiss"
	ActionSettings = "Settings"
)

// Policy is the subset of configuration the Handler consults per event.
// It is read fresh on every event so settings changes apply immediately.
type Policy struct {
	SilentMode              bool
	MinimumSuggestionLength int
	UseSound                bool
	Severity                Severity
	ShowEditorMessages      bool
}

// PolicySource returns the current policy snapshot
type PolicySource func() Policy

// StaticPolicy returns a PolicySource that always yields p
func StaticPolicy(p Policy) PolicySource {
	return func() Policy { return p }
}

// Deliverer starts delivery chains. *Dispatcher implements it.
type Deliverer interface {
	Dispatch(ctx context.Context, req Request) <-chan Result
}

// StatusSink receives visual feedback for the status indicator
type StatusSink interface {
	// Flash shows text briefly and then restores the previous state
	Flash(text string)
	// SetSuggestionCount updates the number of suggestions shown so far
	SetSuggestionCount(n int)
}

// MessageSink shows a user-facing message with optional actions and returns
// the chosen action, or "" when dismissed without a choice.
type MessageSink interface {
	Show(ctx context.Context, severity Severity, message string, actions ...string) (string, error)
}

// Host performs editor-side actions requested from a message
type Host interface {
	RequestSuggestion(ctx context.Context) error
	OpenSettings(ctx context.Context) error
}

// Recorder stores finished delivery results
type Recorder interface {
	Record(r Result) error
}

// Handler turns suggestions and lifecycle signals into alert requests
type Handler struct {
	deliverer Deliverer
	policy    PolicySource
	status    StatusSink
	sink      MessageSink
	host      Host
	recorder  Recorder
	logger    *zap.Logger

	mu          sync.Mutex
	suggestions int
	wg          sync.WaitGroup
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithStatus sets the status indicator sink
func WithStatus(s StatusSink) HandlerOption {
	return func(h *Handler) { h.status = s }
}

// WithMessageSink sets the sink that mirrors suggestion alerts as editor messages
func WithMessageSink(s MessageSink) HandlerOption {
	return func(h *Handler) { h.sink = s }
}

// WithHost sets the target of message actions
func WithHost(host Host) HandlerOption {
	return func(h *Handler) { h.host = host }
}

// WithRecorder sets the delivery history recorder
func WithRecorder(r Recorder) HandlerOption {
	return func(h *Handler) { h.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a Handler that sends requests through d
func NewHandler(d Deliverer, policy PolicySource, opts ...HandlerOption) *Handler {
	h := &Handler{
		deliverer: d,
		policy:    policy,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.policy == nil {
		h.policy = StaticPolicy(Policy{})
	}
	h.logger = h.logger.Named("notify")
	return h
}

// SuggestionCount returns the number of suggestions alerted so far
func (h *Handler) SuggestionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suggestions
}

// OnSuggestion alerts about a completion candidate.
// Candidates shorter than the policy minimum are dropped silently.
func (h *Handler) OnSuggestion(ctx context.Context, s Suggestion) {
	p := h.policy()
	if p.SilentMode {
		return
	}
	if s.Length == 0 || s.Length < p.MinimumSuggestionLength {
		return
	}

	h.mu.Lock()
	h.suggestions++
	count := h.suggestions
	h.mu.Unlock()
	if h.status != nil {
		h.status.SetSuggestionCount(count)
	}

	body := SuggestionBody(s.Text)
	h.send(ctx, NewRequest(SuggestionTitle, body, p.Severity, p.UseSound))

	if p.ShowEditorMessages && h.sink != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.showMessage(ctx, p.Severity, body)
		}()
	}
}

// OnSignal alerts about a session lifecycle change
func (h *Handler) OnSignal(ctx context.Context, sig activity.Signal) {
	p := h.policy()
	if p.SilentMode {
		return
	}
	body, ok := SignalBody(sig.Kind)
	if !ok {
		return
	}
	h.send(ctx, NewRequest(StatusChangeTitle, body, p.Severity, p.UseSound))
}

// SendTest sends a test alert through the full chain, with sound, and waits for the result.
// Silent mode does not apply: a test is always an explicit user request.
func (h *Handler) SendTest(ctx context.Context) Result {
	p := h.policy()
	req := NewRequest(TestTitle, "Test notification - if you can see this, notifications are working!", p.Severity, true)
	if h.status != nil {
		h.status.Flash(FlashText)
	}

	select {
	case r := <-h.deliverer.Dispatch(ctx, req):
		h.record(r)
		return r
	case <-ctx.Done():
		return Result{Request: req, Err: ctx.Err()}
	}
}

// Wait blocks until background message and recording goroutines finish
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) send(ctx context.Context, req Request) {
	if h.status != nil {
		h.status.Flash(FlashText)
	}
	results := h.deliverer.Dispatch(ctx, req)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r, ok := <-results
		if !ok {
			return
		}
		h.record(r)
	}()
}

func (h *Handler) record(r Result) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(r); err != nil {
		h.logger.Debug("recording delivery failed", zap.String("request_id", r.Request.ID), zap.Error(err))
	}
}

func (h *Handler) showMessage(ctx context.Context, severity Severity, body string) {
	action, err := h.sink.Show(ctx, severity, body, ActionView, ActionDismiss, ActionSettings)
	if err != nil {
		h.logger.Debug("editor message failed", zap.Error(err))
		return
	}
	if err := h.HandleAction(ctx, action); err != nil {
		h.logger.Debug("message action failed", zap.String("action", action), zap.Error(err))
	}
}

// HandleAction performs the host action for a chosen message action
func (h *Handler) HandleAction(ctx context.Context, action string) error {
	if h.host == nil {
		return nil
	}
	switch action {
	case ActionView:
		return h.host.RequestSuggestion(ctx)
	case ActionSettings:
		return h.host.OpenSettings(ctx)
	default:
		return nil
	}
}

// SuggestionBody formats the alert text for a suggestion
func SuggestionBody(text string) string {
	return fmt.Sprintf("🤖 Copilot suggestion available: \"%s\"", Truncate(singleLine(text)))
}

// SignalBody returns the alert text for a lifecycle signal
func SignalBody(kind activity.SignalKind) (string, bool) {
	switch kind {
	case activity.SessionStarted:
		return "🚀 Copilot session started!", true
	case activity.SessionEnded:
		return "⏹️ Copilot session ended due to inactivity", true
	case activity.ContinuationSuspected:
		return "⏳ Copilot may be showing continuation prompt - check your editor!", true
	case activity.SessionInterrupted:
		return "⚠️ Work interrupted - editor changed during Copilot session", true
	default:
		return "", false
	}
}
