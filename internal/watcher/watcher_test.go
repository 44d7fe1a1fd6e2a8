package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string, settle time.Duration) *FileWatcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	w, err := New(path, logger, Options{SettleDelay: settle})
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() }) //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx) //nolint:errcheck // Test goroutine

	return w
}

func waitEvent(t *testing.T, w *FileWatcher) Event {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "tracklist.txt"), nil, Options{})
	assert.Error(t, err)
}

func TestStop_Idempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "tracklist.txt"), nil, Options{})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_FileCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracklist.txt")
	w := startWatcher(t, path, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("Queen - Innuendo\n"), 0o644))

	event := waitEvent(t, w)
	assert.Equal(t, EventWritten, event.Type)
	assert.Equal(t, w.Path(), event.Path)
	assert.Equal(t, int64(17), event.Size)
}

func TestWatcher_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracklist.txt")
	w := startWatcher(t, path, 50*time.Millisecond)

	tmp := filepath.Join(dir, ".catalog-1.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("ABBA - SOS\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	event := waitEvent(t, w)
	assert.Equal(t, EventWritten, event.Type)
	assert.Equal(t, int64(11), event.Size)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, filepath.Join(dir, "tracklist.txt"), 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case event := <-w.Events():
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracklist.txt")
	w := startWatcher(t, path, 200*time.Millisecond)

	f, err := os.Create(path)
	require.NoError(t, err)
	for range 5 {
		_, err := f.WriteString("Queen - Innuendo\n")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	event := waitEvent(t, w)
	assert.Equal(t, int64(5*17), event.Size)

	select {
	case extra := <-w.Events():
		t.Fatalf("expected a single settled event, got extra %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Removal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("A - B"), 0o644))
	w := startWatcher(t, path, 50*time.Millisecond)

	require.NoError(t, os.Remove(path))

	event := waitEvent(t, w)
	assert.Equal(t, EventRemoved, event.Type)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "written", EventWritten.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
