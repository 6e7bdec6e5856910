package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSnapshot is returned by ReadFile when the snapshot file does not
// exist yet. Callers that treat a missing canvas as "empty" check for it
// with errors.Is.
var ErrNoSnapshot = errors.New("snapshot file does not exist")

// ReadFile reads and parses a snapshot JSON file from the given path.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoSnapshot)
		}
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", path, err)
	}

	return &snap, nil
}

// WriteFile writes a snapshot to disk as pretty-printed JSON.
//
// The write is atomic: content goes to a temp file in the same directory
// which is then renamed over the target, so watchers and concurrent
// readers never observe a half-written snapshot.
func WriteFile(path string, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot write nil snapshot")
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp snapshot file: %w", err)
	}

	return nil
}

// FileSource reads the current snapshot from a JSON file on demand.
//
// Each call decodes a fresh copy, so the snapshot handed out is never
// shared with a writer. A missing file yields an empty snapshot rather
// than an error; the sync of an empty canvas is a valid operation.
type FileSource struct {
	Path string
}

// NewFileSource creates a snapshot source backed by the given file path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Current returns the snapshot as of this call.
func (f *FileSource) Current(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return &Snapshot{}, nil
		}
		return nil, err
	}
	return snap, nil
}
