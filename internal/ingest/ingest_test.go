package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sheetsync/internal/canvas"
)

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromJSONL(t *testing.T) {
	path := writeJSONL(t,
		`{"id":"a","type":"project","name":"Alpha"}`,
		``,
		`{"id":"b","type":"note","name":"Beta","data":{"tags":["x"]}}`,
		`{not json`,
		`{"id":"c","type":"widget","name":"BadType"}`,
		`{"id":"","type":"note","name":"NoID"}`,
		`{"id":"a","type":"project","name":"Alpha v2"}`,
	)

	items, skipped, err := FromJSONL(path)
	if err != nil {
		t.Fatalf("FromJSONL() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	// The duplicate keeps the later line, in the original position.
	if items[0].ID != "a" || items[0].Name != "Alpha v2" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].ID != "b" {
		t.Errorf("items[1] = %+v", items[1])
	}

	if len(skipped) != 3 {
		t.Fatalf("skipped = %v, want 3 entries", skipped)
	}
	if !strings.Contains(skipped[0], "line 4") || !strings.Contains(skipped[0], "invalid JSON") {
		t.Errorf("skipped[0] = %q", skipped[0])
	}
	if !strings.Contains(skipped[1], "line 5") {
		t.Errorf("skipped[1] = %q", skipped[1])
	}
}

func TestFromJSONL_MissingFile(t *testing.T) {
	_, _, err := FromJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRun_Replace(t *testing.T) {
	input := writeJSONL(t,
		`{"id":"a","type":"project","name":"Alpha"}`,
		`{"id":"b","type":"note","name":"Beta"}`,
	)
	out := filepath.Join(t.TempDir(), "canvas.json")

	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		Title:      "Imported Board",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ItemsImported != 2 || result.ItemsSkipped != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", result.TotalItems)
	}

	snap, err := canvas.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if snap.GlobalTitle != "Imported Board" {
		t.Errorf("GlobalTitle = %q", snap.GlobalTitle)
	}
	if len(snap.Items) != 2 || snap.Items[0].ID != "a" {
		t.Errorf("items = %+v", snap.Items)
	}
}

func TestRun_ReplaceDropsExistingItems(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "canvas.json")
	existing := &canvas.Snapshot{Items: []canvas.Item{
		{ID: "old", Type: canvas.TypeNote, Name: "Old"},
	}}
	if err := canvas.WriteFile(out, existing); err != nil {
		t.Fatal(err)
	}

	input := writeJSONL(t, `{"id":"new","type":"note","name":"New"}`)
	if _, err := Run(context.Background(), Options{FromJSONL: input, ToSnapshot: out}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	snap, _ := canvas.ReadFile(out)
	if len(snap.Items) != 1 || snap.Items[0].ID != "new" {
		t.Errorf("replace kept old items: %+v", snap.Items)
	}
}

func TestRun_Merge(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "canvas.json")
	existing := &canvas.Snapshot{
		GlobalTitle: "Board",
		Items: []canvas.Item{
			{ID: "a", Type: canvas.TypeProject, Name: "Alpha v1"},
			{ID: "b", Type: canvas.TypeNote, Name: "Beta"},
		},
	}
	if err := canvas.WriteFile(out, existing); err != nil {
		t.Fatal(err)
	}

	input := writeJSONL(t,
		`{"id":"a","type":"project","name":"Alpha v2"}`,
		`{"id":"c","type":"chart","name":"Gamma"}`,
	)
	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		Merge:      true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", result.TotalItems)
	}

	snap, _ := canvas.ReadFile(out)
	if snap.GlobalTitle != "Board" {
		t.Errorf("merge lost the existing title: %q", snap.GlobalTitle)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("items = %+v", snap.Items)
	}
	// Replaced in place, existing order preserved, new appended.
	if snap.Items[0].Name != "Alpha v2" || snap.Items[1].ID != "b" || snap.Items[2].ID != "c" {
		t.Errorf("merged order = %v, %v, %v", snap.Items[0].ID, snap.Items[1].ID, snap.Items[2].ID)
	}
}

func TestRun_MergeWithoutExistingSnapshot(t *testing.T) {
	input := writeJSONL(t, `{"id":"a","type":"note","name":"Alpha"}`)
	out := filepath.Join(t.TempDir(), "canvas.json")

	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		Merge:      true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", result.TotalItems)
	}
}

func TestRun_DryRun(t *testing.T) {
	input := writeJSONL(t, `{"id":"a","type":"note","name":"Alpha"}`)
	out := filepath.Join(t.TempDir(), "canvas.json")

	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ItemsImported != 1 {
		t.Errorf("ItemsImported = %d", result.ItemsImported)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("dry run wrote the snapshot")
	}
}

func TestRun_Backup(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "canvas.json")
	existing := &canvas.Snapshot{Items: []canvas.Item{
		{ID: "old", Type: canvas.TypeNote, Name: "Old"},
	}}
	if err := canvas.WriteFile(out, existing); err != nil {
		t.Fatal(err)
	}

	input := writeJSONL(t, `{"id":"new","type":"note","name":"New"}`)
	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		Backup:     true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BackupCreated == "" {
		t.Fatal("no backup path reported")
	}

	backup, err := canvas.ReadFile(result.BackupCreated)
	if err != nil {
		t.Fatalf("backup unreadable: %v", err)
	}
	if len(backup.Items) != 1 || backup.Items[0].ID != "old" {
		t.Errorf("backup items = %+v", backup.Items)
	}
}

func TestRun_BackupWithoutExistingSnapshot(t *testing.T) {
	input := writeJSONL(t, `{"id":"a","type":"note","name":"Alpha"}`)
	out := filepath.Join(t.TempDir(), "canvas.json")

	result, err := Run(context.Background(), Options{
		FromJSONL:  input,
		ToSnapshot: out,
		Backup:     true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BackupCreated != "" {
		t.Errorf("BackupCreated = %q, want empty when nothing to back up", result.BackupCreated)
	}
}

func TestRun_MissingInput(t *testing.T) {
	_, err := Run(context.Background(), Options{
		FromJSONL:  filepath.Join(t.TempDir(), "missing.jsonl"),
		ToSnapshot: filepath.Join(t.TempDir(), "canvas.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Run() error = %v", err)
	}
}
