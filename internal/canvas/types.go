// Package canvas provides the data structures for canvas snapshots.
//
// A snapshot is a titled, ordered collection of typed visual items. It is
// the unit of synchronization: the engine mirrors one whole snapshot into
// the remote spreadsheet per sync.
package canvas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ItemType identifies the kind of a canvas item.
type ItemType string

const (
	TypeProject ItemType = "project"
	TypeEntity  ItemType = "entity"
	TypeNote    ItemType = "note"
	TypeChart   ItemType = "chart"
)

// Valid returns true if the item type is one of the known kinds.
func (t ItemType) Valid() bool {
	switch t {
	case TypeProject, TypeEntity, TypeNote, TypeChart:
		return true
	}
	return false
}

// String returns the wire form of the item type.
func (t ItemType) String() string {
	return string(t)
}

// Item is a single card on the canvas.
//
// Data is the free-form payload behind the card. The canonical field keys
// are field1..field4; their shapes depend on the item type (checklists for
// projects, metric lists for charts, tag lists for entities). The payload
// is carried as decoded JSON and never interpreted beyond rendering, so
// unknown keys and shapes survive a sync round-trip unchanged.
type Item struct {
	ID       string         `json:"id"`
	Type     ItemType       `json:"type"` // project, entity, note, chart
	Name     string         `json:"name"`
	Subtitle string         `json:"subtitle,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Validate checks that the item can be synchronized.
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if !it.Type.Valid() {
		return fmt.Errorf("item %s has unknown type %q", it.ID, it.Type)
	}
	return nil
}

// Snapshot is the full canvas state at one instant.
//
// Item order is significant and is preserved into the spreadsheet row
// order. A snapshot handed to the engine must not be mutated until the
// sync returns.
type Snapshot struct {
	GlobalTitle       string `json:"globalTitle,omitempty"`
	GlobalDescription string `json:"globalDescription,omitempty"`
	Items             []Item `json:"items"`
}

// Validate checks the snapshot for conditions that would corrupt a sync:
// empty item IDs, unknown item types, duplicate IDs.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Items))
	for i := range s.Items {
		it := &s.Items[i]
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if seen[it.ID] {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
	}
	return nil
}

// Fingerprint returns a content hash of the snapshot.
//
// The hash is computed over the canonical JSON encoding, so it is
// order-sensitive for items and list fields, and type-sensitive for
// payload values (the string "5" and the number 5 hash differently).
// Two snapshots with equal fingerprints are structurally identical.
func (s *Snapshot) Fingerprint() string {
	// encoding/json sorts map keys, which makes the encoding canonical
	// for the decoded-JSON payloads carried in Item.Data.
	data, err := json.Marshal(s)
	if err != nil {
		// Data holds only decoded JSON values; Marshal cannot fail on
		// them. Fall back to an empty hash rather than panicking.
		data = nil
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ItemCount returns the number of items in the snapshot, treating a nil
// snapshot as empty.
func (s *Snapshot) ItemCount() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}
