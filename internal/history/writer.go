package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// Writer appends delivery results to the history file and prunes old
// entries. It implements notify.Recorder and is safe for concurrent use.
type Writer struct {
	// StateDir is the directory containing the history file.
	StateDir string
	// MaxEntries is the maximum number of entries to retain (0 = unlimited).
	MaxEntries int

	now func() time.Time
	mu  sync.Mutex
}

// NewWriter creates a new history writer.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{StateDir: stateDir, MaxEntries: maxEntries, now: time.Now}
}

// SetMaxEntries changes the retention limit for later appends
func (w *Writer) SetMaxEntries(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.MaxEntries = n
}

// Record appends the outcome of one delivery chain
func (w *Writer) Record(r notify.Result) error {
	return w.Append(EntryFromResult(r, w.now()))
}

// Append adds entry, pruning the oldest entries beyond MaxEntries
func (w *Writer) Append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := Load(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	f.Entries = append(f.Entries, entry)
	if w.MaxEntries > 0 && len(f.Entries) > w.MaxEntries {
		f.Entries = f.Entries[len(f.Entries)-w.MaxEntries:]
	}

	if err := Save(w.StateDir, f); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// EntryFromResult converts a delivery result to a history entry
func EntryFromResult(r notify.Result, at time.Time) Entry {
	e := Entry{
		ID:        r.Request.ID,
		Timestamp: at,
		Title:     r.Request.Title,
		Body:      r.Request.Body,
		Severity:  string(r.Request.Severity),
		Strategy:  r.Strategy,
	}
	switch {
	case r.Delivered:
		e.Status = StatusDelivered
	case errors.Is(r.Err, notify.ErrChainAbandoned):
		e.Status = StatusAbandoned
	default:
		e.Status = StatusExhausted
	}
	for _, f := range r.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		e.Failures = append(e.Failures, Failure{Strategy: f.Strategy, Error: msg})
	}
	return e
}
