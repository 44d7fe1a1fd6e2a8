// Package watcher reports settled changes to a single file.
//
// The parent directory is watched rather than the file itself, so atomic
// replaces (write temp file, rename over target) are seen as well as
// in-place edits. Writes are debounced: an event is emitted only once the
// file's size and mtime stop changing for SettleDelay.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file event.
type EventType int

const (
	// EventWritten is emitted when the file was created or changed and has settled.
	EventWritten EventType = iota
	// EventRemoved is emitted when the file is deleted or moved away.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventWritten:
		return "written"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled change of the watched file.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}

// Options configures the watcher.
type Options struct {
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
}

// FileWatcher watches one file.
type FileWatcher struct {
	path    string
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu      sync.Mutex // protects pending
	pending *pendingEvent

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher for path. The parent directory must exist;
// the file itself may not exist yet.
func New(path string, logger *slog.Logger, opts Options) (*FileWatcher, error) {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &FileWatcher{
		path:    path,
		logger:  logger,
		opts:    opts,
		watcher: fw,
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Events returns settled file events. The channel is never closed;
// stop reading when the context passed to Start is done.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher errors. Like Events, it is never closed.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Start processes file system events until ctx is done or Stop is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

// Stop releases the watcher. Safe to call more than once.
func (w *FileWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		if w.pending != nil {
			w.pending.timer.Stop()
			w.pending = nil
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func (w *FileWatcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelPending()
		w.emit(Event{Type: EventRemoved, Path: w.path})
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.startSettling()
	}
}

// startSettling (re)arms the settle timer with the file's current state.
func (w *FileWatcher) startSettling() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}

	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Debug("stat during settle failed", "path", w.path, "error", err)
		return
	}

	w.pending = &pendingEvent{
		size:    info.Size(),
		modTime: info.ModTime(),
		timer:   time.AfterFunc(w.opts.SettleDelay, w.checkSettled),
	}
}

// checkSettled emits the event if the file stopped changing, or waits again.
func (w *FileWatcher) checkSettled() {
	w.mu.Lock()
	pending := w.pending
	if pending == nil {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(w.path)
	if err != nil {
		w.pending = nil
		w.mu.Unlock()
		w.emit(Event{Type: EventRemoved, Path: w.path})
		return
	}

	if info.Size() != pending.size || !info.ModTime().Equal(pending.modTime) {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.SettleDelay, w.checkSettled)
		w.mu.Unlock()
		return
	}

	w.pending = nil
	w.mu.Unlock()

	w.emit(Event{
		Type:    EventWritten,
		Path:    w.path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (w *FileWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
}

func (w *FileWatcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}
