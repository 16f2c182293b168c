// Package fswatch turns saves in a working tree into editor activity for
// editors without a bridge extension. The most recently written file is
// treated as the focused document; its length in characters after each
// debounced write is reported as an edit.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events one save produces
const DefaultDebounce = 100 * time.Millisecond

// maxDocumentSize bounds the files measured; larger files are ignored
const maxDocumentSize = 8 << 20

// skipDirs are never watched
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// Events receives document activity. lifecycle.Loop implements it.
type Events interface {
	Edit(length int)
	FocusChange(length int)
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last write to a file
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher reports writes under a directory tree
type Watcher struct {
	dir      string
	events   Events
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	// owned by Run
	focused string
	pending []string
}

// New starts watching dir recursively. Events are delivered once Run is called.
func New(dir string, events Events, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s: not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		events:   events,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		watcher:  fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("fswatch")

	if err := w.addRecursive(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced writes until ctx is done, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.track(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Debug("filesystem watcher error", zap.Error(err))
		}
	}
}

// track records a relevant event and reports whether the debounce should restart
func (w *Watcher) track(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Debug("failed to watch new directory", zap.Error(err))
			}
		}
		return false
	}
	if !info.Mode().IsRegular() || hidden(filepath.Base(event.Name)) {
		return false
	}
	for _, p := range w.pending {
		if p == event.Name {
			return true
		}
	}
	w.pending = append(w.pending, event.Name)
	return true
}

func (w *Watcher) flush() {
	pending := w.pending
	w.pending = nil
	for _, path := range pending {
		length, err := documentLength(path)
		if err != nil {
			w.logger.Debug("skipping document", zap.String("path", path), zap.Error(err))
			continue
		}
		if path != w.focused {
			w.focused = path
			w.logger.Debug("focus change", zap.String("path", path), zap.Int("length", length))
			w.events.FocusChange(length)
			continue
		}
		w.events.Edit(length)
	}
}

var errTooLarge = errors.New("document too large")

// documentLength returns the file length in characters
func documentLength(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size() > maxDocumentSize {
		return 0, errTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return utf8.RuneCount(data), nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (skipDirs[d.Name()] || hidden(d.Name())) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func hidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
