package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Reload(t *testing.T) {
	t.Parallel()
	path := writeFile(t, filepath.Join(t.TempDir(), "config.yml"), "burst_delta_threshold: 30\n")

	store, err := NewStore(Paths{User: path}, nil)
	require.NoError(t, err)
	first := store.Current()
	assert.Equal(t, 30, first.BurstDeltaThreshold)

	var published atomic.Int32
	store.Subscribe(func(cfg *Configuration) {
		published.Add(1)
	})

	writeFile(t, path, "burst_delta_threshold: 45\n")
	require.NoError(t, store.Reload())

	assert.Equal(t, 45, store.Current().BurstDeltaThreshold)
	assert.Equal(t, 30, first.BurstDeltaThreshold, "published snapshots are immutable")
	assert.Equal(t, int32(1), published.Load())
}

func TestStore_Watch(t *testing.T) {
	t.Parallel()
	path := writeFile(t, filepath.Join(t.TempDir(), "config.yml"), "silent_mode: false\n")

	store, err := NewStore(Paths{User: path}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher a moment to register before the write.
	time.Sleep(100 * time.Millisecond)
	_, err = ToggleConfigValue(path, "silent_mode", false)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.Current().SilentMode }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStore_WatchPicksUpNewFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "copilot-notifier", "config.yml")

	store, err := NewStore(Paths{User: path}, nil)
	require.NoError(t, err)
	require.False(t, store.Current().SilentMode)

	var published atomic.Int32
	store.Subscribe(func(*Configuration) { published.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Watch creates the user directory before registering it.
	require.Eventually(t, func() bool {
		info, err := os.Stat(filepath.Dir(path))
		return err == nil && info.IsDir()
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	_, err = ToggleConfigValue(path, "silent_mode", false)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.Current().SilentMode }, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, published.Load(), int32(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStore_WatchWithoutFiles(t *testing.T) {
	t.Parallel()
	store := NewStaticStore(Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStaticStore(t *testing.T) {
	t.Parallel()
	cfg := Default()
	store := NewStaticStore(cfg)

	require.NoError(t, store.Reload())
	assert.Same(t, cfg, store.Current())
}
