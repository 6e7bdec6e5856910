package engine

import (
	"sync"

	"sheetsync/internal/canvas"
)

// ChangeDetector decides whether a snapshot needs syncing by comparing
// its fingerprint against the last committed one. The cursor advances
// only on Commit, so a failed sync leaves the snapshot eligible for
// retry.
type ChangeDetector struct {
	mu       sync.Mutex
	lastSync string
}

// NewChangeDetector creates a detector with no committed fingerprint,
// so the first snapshot always syncs.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// ShouldSync reports whether the snapshot differs from the last
// committed one.
func (d *ChangeDetector) ShouldSync(snap *canvas.Snapshot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSync == "" || d.lastSync != snap.Fingerprint()
}

// Commit records the snapshot as successfully synced. Call only after
// every remote write for the snapshot succeeded.
func (d *ChangeDetector) Commit(snap *canvas.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSync = snap.Fingerprint()
}

// Reset forgets the committed fingerprint. Used when the target
// spreadsheet changed identity, since rows committed to the old
// spreadsheet say nothing about the new one.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSync = ""
}
