// Package daemon provides file system watching for the canvas file.
package daemon

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates the canvas file appeared.
	OpCreate EventOp = iota
	// OpModify indicates the canvas file was written in place.
	OpModify
	// OpDelete indicates the canvas file was removed.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event represents a file system event on the canvas file.
type Event struct {
	// Path is the absolute path of the canvas file.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// CanvasWatcher watches a single canvas file for changes. It watches
// the parent directory rather than the file itself, so atomic
// replacement (write to temp, rename over the target) is observed as a
// create instead of silently detaching the watch.
type CanvasWatcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	path    string // absolute canvas file path
}

// NewCanvasWatcher creates a new CanvasWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewCanvasWatcher() (*CanvasWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &CanvasWatcher{
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the canvas file at the given path. The file
// itself does not need to exist yet; its appearance is reported as a
// create event.
func (cw *CanvasWatcher) Start(path string) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("watcher already running")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve canvas path: %w", err)
	}
	cw.path = absPath

	if err := cw.watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch canvas directory %s: %w", filepath.Dir(absPath), err)
	}

	cw.running = true
	cw.wg.Add(1)
	go cw.processEvents()

	return nil
}

// Stop stops watching and cleans up resources. It blocks until the
// event processing goroutine has exited.
func (cw *CanvasWatcher) Stop() error {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.done)

	if err := cw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	cw.wg.Wait()

	close(cw.events)
	close(cw.errors)

	return nil
}

// Events returns the channel that emits Event notifications.
// This channel is closed when the watcher is stopped.
func (cw *CanvasWatcher) Events() <-chan Event {
	return cw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (cw *CanvasWatcher) Errors() <-chan error {
	return cw.errors
}

// processEvents is the main event loop that converts fsnotify events
// on the watched directory into canvas Event notifications.
func (cw *CanvasWatcher) processEvents() {
	defer cw.wg.Done()

	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			if canvasEvent, ok := cw.convertEvent(event); ok {
				select {
				case cw.events <- canvasEvent:
				case <-cw.done:
					return
				}
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case cw.errors <- err:
			case <-cw.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to an Event.
// Returns (Event, true) if the event is for the canvas file,
// or (Event{}, false) if it should be ignored.
func (cw *CanvasWatcher) convertEvent(event fsnotify.Event) (Event, bool) {
	absName, err := filepath.Abs(event.Name)
	if err != nil || absName != cw.path {
		return Event{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// Treat rename as delete (an atomic replace triggers a
		// separate create for the new file).
		op = OpDelete
	default:
		// Ignore chmod and other events
		return Event{}, false
	}

	return Event{Path: cw.path, Op: op}, true
}

// IsRunning returns true if the watcher is currently running.
func (cw *CanvasWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}
