package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	f, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, f.Entries)
	assert.NotNil(t, f.Entries)
}

func TestLoad_CorruptedFileIsBackedUp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, HistoryFileName)
	require.NoError(t, os.WriteFile(path, []byte("entries: [unclosed"), 0o644))

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, f.Entries)
	assert.FileExists(t, path+BackupSuffix)
	assert.NoFileExists(t, path)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "state")
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	in := &File{Entries: []Entry{{
		ID: "abc", Timestamp: at, Title: "t", Body: "b", Status: StatusExhausted,
		Failures: []Failure{{Strategy: "notify-send", Error: "boom"}},
	}}}

	require.NoError(t, Save(dir, in))
	out, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.True(t, at.Equal(out.Entries[0].Timestamp))
	assert.Equal(t, in.Entries[0].Failures, out.Entries[0].Failures)

	require.NoError(t, Clear(dir))
	out, err = Load(dir)
	require.NoError(t, err)
	assert.Empty(t, out.Entries)
}

func TestEntryFromResult(t *testing.T) {
	t.Parallel()
	req := notify.Request{ID: "r1", Title: "Copilot Suggestion", Body: "body", Severity: notify.SeverityWarning}
	at := time.Unix(0, 0)

	tests := map[string]struct {
		result       notify.Result
		wantStatus   string
		wantFailures int
	}{
		"delivered after a failure": {
			result: notify.Result{Request: req, Delivered: true, Strategy: "zenity-popup",
				Failures: []notify.Outcome{{Strategy: "notify-send", Err: errors.New("no display")}}},
			wantStatus:   StatusDelivered,
			wantFailures: 1,
		},
		"exhausted": {
			result:     notify.Result{Request: req, Err: errors.New("all failed")},
			wantStatus: StatusExhausted,
		},
		"abandoned": {
			result:     notify.Result{Request: req, Err: fmt.Errorf("shutdown: %w", notify.ErrChainAbandoned)},
			wantStatus: StatusAbandoned,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := EntryFromResult(tt.result, at)
			assert.Equal(t, "r1", e.ID)
			assert.Equal(t, "warning", e.Severity)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Len(t, e.Failures, tt.wantFailures)
		})
	}
}

func TestWriter_PrunesOldest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := NewWriter(dir, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Record(notify.Result{
			Request:   notify.Request{ID: fmt.Sprintf("id-%d", i)},
			Delivered: true,
		}))
	}

	f, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, f.Entries, 3)
	assert.Equal(t, "id-2", f.Entries[0].ID)
	assert.Equal(t, "id-4", f.Entries[2].ID)
}

func TestWriter_ConcurrentRecords(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := NewWriter(dir, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Record(notify.Result{Request: notify.Request{ID: fmt.Sprint(i)}}))
		}(i)
	}
	wg.Wait()

	f, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, f.Entries, 10)
}

func TestWriter_SetMaxEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := NewWriter(dir, 0)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.Record(notify.Result{Request: notify.Request{ID: fmt.Sprint(i)}}))
	}

	w.SetMaxEntries(2)
	require.NoError(t, w.Record(notify.Result{Request: notify.Request{ID: "last"}}))

	f, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, f.Entries, 2)
	assert.Equal(t, "last", f.Entries[1].ID)
}
