package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the event burst of one atomic write
const reloadDebounce = 50 * time.Millisecond

// Store holds the current configuration snapshot. Readers get an immutable
// *Configuration; a reload swaps in a new one and notifies subscribers.
type Store struct {
	paths  Paths
	logger *zap.Logger

	current atomic.Pointer[Configuration]

	mu   sync.Mutex
	subs []func(*Configuration)
}

// NewStore loads the initial snapshot from paths
func NewStore(paths Paths, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := Load(paths, logger)
	if err != nil {
		return nil, err
	}
	s := &Store{paths: paths, logger: logger.Named("config")}
	s.current.Store(cfg)
	return s, nil
}

// NewStaticStore wraps a fixed configuration. Reload and Watch keep it unchanged.
func NewStaticStore(cfg *Configuration) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(cfg)
	return s
}

// Current returns the latest snapshot
func (s *Store) Current() *Configuration {
	return s.current.Load()
}

// Paths returns the files the store reads
func (s *Store) Paths() Paths {
	return s.paths
}

// Subscribe registers fn to receive every new snapshot
func (s *Store) Subscribe(fn func(*Configuration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Reload re-reads configuration and publishes it.
// On failure the previous snapshot stays current.
func (s *Store) Reload() error {
	if len(s.paths.Files()) == 0 {
		return nil
	}
	cfg, err := Load(s.paths, s.logger)
	if err != nil {
		s.logger.Warn("config reload failed, keeping previous settings", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.current.Store(cfg)
	subs := append([]func(*Configuration){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

// Watch reloads whenever a config file is written, created, renamed into
// place or removed, until ctx is done. It watches the parent directories so
// files created after Watch starts are picked up too. The user config
// directory is created if missing; a missing project directory is skipped.
func (s *Store) Watch(ctx context.Context) error {
	files := s.paths.Files()
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("config watching disabled", zap.Error(err))
		<-ctx.Done()
		return nil
	}
	defer w.Close()

	known := make(map[string]bool, len(files))
	for _, path := range files {
		known[filepath.Clean(path)] = true
	}

	dirs := make(map[string]bool)
	for _, path := range files {
		dir := filepath.Dir(filepath.Clean(path))
		if dirs[dir] {
			continue
		}
		if path == s.paths.User {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				s.logger.Warn("cannot create config directory", zap.String("dir", dir), zap.Error(err))
				continue
			}
		}
		if err := w.Add(dir); err != nil {
			s.logger.Debug("config directory not watched", zap.String("dir", dir), zap.Error(err))
			continue
		}
		dirs[dir] = true
	}

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
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !known[filepath.Clean(ev.Name)] || ev.Op == fsnotify.Chmod {
				continue
			}
			s.logger.Debug("config file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("config watch error", zap.Error(err))
		case <-timerC:
			s.logger.Info("config changed, reloading")
			_ = s.Reload()
		}
	}
}
