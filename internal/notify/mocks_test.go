package notify

import (
	"context"
	"errors"
	"sync"
)

// scriptedStrategy reports a fixed outcome, synchronously or from a goroutine
// once release is closed
type scriptedStrategy struct {
	name    string
	err     error
	release chan struct{}

	mu       sync.Mutex
	attempts int
	requests []Request
	done     func(Outcome)
}

func succeed(name string) *scriptedStrategy {
	return &scriptedStrategy{name: name}
}

func fail(name string) *scriptedStrategy {
	return &scriptedStrategy{name: name, err: errors.New(name + " failed")}
}

// deferred makes the strategy report only after release is closed
func (s *scriptedStrategy) deferred() *scriptedStrategy {
	s.release = make(chan struct{})
	return s
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Attempt(_ context.Context, req Request, done func(Outcome)) {
	s.mu.Lock()
	s.attempts++
	s.requests = append(s.requests, req)
	s.done = done
	s.mu.Unlock()

	if s.release == nil {
		done(Outcome{Strategy: s.name, Err: s.err})
		return
	}
	go func() {
		<-s.release
		done(Outcome{Strategy: s.name, Err: s.err})
	}()
}

func (s *scriptedStrategy) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// report invokes the last done callback again (late or duplicate callback)
func (s *scriptedStrategy) report(o Outcome) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	done(o)
}

// fakeRunner records commands instead of spawning processes
type fakeRunner struct {
	mu       sync.Mutex
	missing  map[string]bool
	failures map[string]error
	calls    []command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{missing: map[string]bool{}, failures: map[string]error{}}
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, command{name: name, args: args})
	return r.failures[name]
}

func (r *fakeRunner) Calls() []command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command(nil), r.calls...)
}

// recordingStatus counts flashes and tracks the suggestion counter
type recordingStatus struct {
	mu      sync.Mutex
	flashes []string
	count   int
}

func (s *recordingStatus) Flash(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, text)
}

func (s *recordingStatus) SetSuggestionCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
}

func (s *recordingStatus) Flashes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flashes)
}

// choosingSink answers every message with a fixed action
type choosingSink struct {
	action string

	mu       sync.Mutex
	messages []string
	actions  [][]string
}

func (s *choosingSink) Show(_ context.Context, _ Severity, message string, actions ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	s.actions = append(s.actions, actions)
	return s.action, nil
}

func (s *choosingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type countingHost struct {
	mu          sync.Mutex
	suggestions int
	settings    int
}

func (h *countingHost) RequestSuggestion(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suggestions++
	return nil
}

func (h *countingHost) OpenSettings(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings++
	return nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *memoryRecorder) Record(res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *memoryRecorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}
