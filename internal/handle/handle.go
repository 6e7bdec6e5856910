// Package handle persists the identity of the managed spreadsheet
// between runs. A handle records which spreadsheet and tab previous
// syncs wrote to so later syncs reuse them instead of creating new
// resources.
package handle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Handle identifies the spreadsheet a sync run targets.
type Handle struct {
	SpreadsheetID string    `json:"spreadsheetId"`
	SheetTitle    string    `json:"sheetTitle"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store persists handles. Load returns (nil, nil) when no handle has
// been saved yet.
type Store interface {
	Load() (*Handle, error)
	Save(h *Handle) error
	Clear() error
}

// FileStore keeps the handle in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted handle. A missing file means no handle.
func (s *FileStore) Load() (*Handle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read handle file: %w", err)
	}

	var h Handle
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse handle file %s: %w", s.path, err)
	}
	if h.SpreadsheetID == "" {
		return nil, fmt.Errorf("handle file %s has no spreadsheet id", s.path)
	}
	return &h, nil
}

// Save writes the handle atomically, creating parent directories as
// needed.
func (s *FileStore) Save(h *Handle) error {
	if h == nil {
		return fmt.Errorf("cannot save nil handle")
	}
	if h.SpreadsheetID == "" {
		return fmt.Errorf("cannot save handle with no spreadsheet id")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create handle directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal handle: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write handle file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace handle file: %w", err)
	}
	return nil
}

// Clear removes the persisted handle. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove handle file: %w", err)
	}
	return nil
}

// MemoryStore keeps the handle in memory. Used by tests and load runs
// that must not touch the filesystem.
type MemoryStore struct {
	mu sync.Mutex
	h  *Handle
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h == nil {
		return nil, nil
	}
	copied := *s.h
	return &copied, nil
}

func (s *MemoryStore) Save(h *Handle) error {
	if h == nil {
		return fmt.Errorf("cannot save nil handle")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *h
	s.h = &copied
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = nil
	return nil
}
