package engine

import (
	"testing"

	"sheetsync/internal/canvas"
)

func TestChangeDetector_FirstSnapshotSyncs(t *testing.T) {
	d := NewChangeDetector()
	if !d.ShouldSync(&canvas.Snapshot{}) {
		t.Error("a fresh detector must sync the first snapshot")
	}
}

func TestChangeDetector_CommitSuppressesRepeat(t *testing.T) {
	d := NewChangeDetector()
	snap := testSnapshot("Alpha")

	d.Commit(snap)
	if d.ShouldSync(snap) {
		t.Error("committed snapshot should not sync again")
	}

	// Equality is structural, not pointer identity.
	clone := testSnapshot("Alpha")
	if d.ShouldSync(clone) {
		t.Error("an identical snapshot should not sync again")
	}
}

func TestChangeDetector_ChangeTriggersSync(t *testing.T) {
	d := NewChangeDetector()
	d.Commit(testSnapshot("Alpha"))

	if !d.ShouldSync(testSnapshot("Alpha", "Beta")) {
		t.Error("an added item must trigger a sync")
	}
	if !d.ShouldSync(testSnapshot("Alpha renamed")) {
		t.Error("a renamed item must trigger a sync")
	}
}

func TestChangeDetector_UncommittedFailureRetries(t *testing.T) {
	d := NewChangeDetector()
	snap := testSnapshot("Alpha")

	// ShouldSync without a following Commit models a failed write.
	if !d.ShouldSync(snap) {
		t.Fatal("first check should sync")
	}
	if !d.ShouldSync(snap) {
		t.Error("a failed sync must leave the snapshot eligible")
	}
}

func TestChangeDetector_Reset(t *testing.T) {
	d := NewChangeDetector()
	snap := testSnapshot("Alpha")

	d.Commit(snap)
	d.Reset()
	if !d.ShouldSync(snap) {
		t.Error("reset must make the committed snapshot eligible again")
	}
}
