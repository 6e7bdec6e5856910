package canvas

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")

	_, err := ReadFile(path)
	if err == nil {
		t.Fatal("ReadFile() on missing file expected error, got nil")
	}
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("ReadFile() error = %v, want ErrNoSnapshot", err)
	}
}

func TestWriteFile_ReadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")

	snap := &Snapshot{
		GlobalTitle:       "Board",
		GlobalDescription: "Planning board",
		Items: []Item{
			{ID: "p1", Type: TypeProject, Name: "Launch", Subtitle: "Q3", Data: map[string]any{
				"field1": "Ship the launch",
				"field4": []any{map[string]any{"id": "c1", "text": "A", "done": true}},
			}},
			{ID: "n1", Type: TypeNote, Name: "Notes"},
		},
	}

	if err := WriteFile(path, snap); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}

	if got.Fingerprint() != snap.Fingerprint() {
		t.Errorf("round-trip changed the snapshot: %s vs %s", got.Fingerprint(), snap.Fingerprint())
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items after round-trip, got %d", len(got.Items))
	}
	if got.Items[0].ID != "p1" || got.Items[1].ID != "n1" {
		t.Errorf("item order not preserved: %s, %s", got.Items[0].ID, got.Items[1].ID)
	}
}

func TestWriteFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")

	snap := &Snapshot{Items: []Item{{ID: "", Type: TypeNote}}}
	if err := WriteFile(path, snap); err == nil {
		t.Fatal("WriteFile() with invalid snapshot expected error, got nil")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid snapshot should not leave a file behind")
	}
}

func TestWriteFile_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.json")

	if err := WriteFile(path, &Snapshot{}); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "canvas.json" {
			t.Errorf("unexpected leftover file %s", e.Name())
		}
	}
}

func TestFileSource_Current(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")
	src := NewFileSource(path)
	ctx := context.Background()

	// Missing file reads as an empty snapshot.
	snap, err := src.Current(ctx)
	if err != nil {
		t.Fatalf("Current() on missing file failed: %v", err)
	}
	if snap.ItemCount() != 0 {
		t.Errorf("expected empty snapshot, got %d items", snap.ItemCount())
	}

	if err := WriteFile(path, &Snapshot{Items: []Item{{ID: "a", Type: TypeNote, Name: "N"}}}); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	snap, err = src.Current(ctx)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if snap.ItemCount() != 1 {
		t.Errorf("expected 1 item, got %d", snap.ItemCount())
	}

	// Each call hands out an independent copy.
	snap.Items[0].Name = "mutated"
	again, err := src.Current(ctx)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if again.Items[0].Name != "N" {
		t.Error("snapshot copies are shared between calls")
	}
}

func TestFileSource_CancelledContext(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "canvas.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Current(ctx); err == nil {
		t.Error("Current() with cancelled context expected error, got nil")
	}
}
