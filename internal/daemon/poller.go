// Package daemon provides polling-based change detection for the
// canvas file, used where fsnotify is unavailable or unreliable
// (network mounts, some container filesystems).
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// PollConfig configures the canvas file poller.
type PollConfig struct {
	// Path is the canvas file to poll.
	Path string

	// PollInterval is how often to stat the file (default: 2s).
	PollInterval time.Duration

	// Logger for poll warnings. Defaults to a stderr logger.
	Logger *log.Logger
}

// PollCallback is called once per detected change.
//
// If the callback returns an error, polling continues but the error is
// logged.
type PollCallback func(event Event) error

// fileState is the stat signature used to detect changes.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// WatchFilePoll polls the canvas file and calls the callback whenever
// its stat signature (existence, mtime, size) changes.
//
// The initial state of the file is taken as the baseline, so a file
// that already exists when polling starts does not fire an event.
// This function blocks until the context is cancelled.
func WatchFilePoll(ctx context.Context, config PollConfig, callback PollCallback) error {
	if config.PollInterval == 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[poll] ", log.LstdFlags)
	}

	absPath, err := filepath.Abs(config.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve canvas path: %w", err)
	}

	last := statFile(absPath)
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			current := statFile(absPath)
			event, changed := diffStates(absPath, last, current)
			last = current
			if !changed {
				continue
			}

			if err := callback(event); err != nil {
				config.Logger.Printf("Warning: poll callback error: %v", err)
			}
		}
	}
}

// diffStates compares two stat signatures and derives the event to
// emit, if any.
func diffStates(path string, prev, current fileState) (Event, bool) {
	switch {
	case !prev.exists && current.exists:
		return Event{Path: path, Op: OpCreate}, true
	case prev.exists && !current.exists:
		return Event{Path: path, Op: OpDelete}, true
	case current.exists && (!current.modTime.Equal(prev.modTime) || current.size != prev.size):
		return Event{Path: path, Op: OpModify}, true
	default:
		return Event{}, false
	}
}
