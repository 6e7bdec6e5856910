// Package ingest imports canvas items from JSONL exports into a
// snapshot file. Each input line holds one item; malformed lines are
// skipped and reported rather than aborting the import.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"sheetsync/internal/canvas"
)

// Options configures an import.
type Options struct {
	FromJSONL  string // input JSONL file path
	ToSnapshot string // output snapshot path
	Title      string // optional global title override
	Merge      bool   // merge into the existing snapshot instead of replacing it
	DryRun     bool   // parse and report without writing
	Backup     bool   // back up the existing snapshot before overwriting
}

// Result contains statistics about the import.
type Result struct {
	ItemsImported int
	ItemsSkipped  int
	TotalItems    int // items in the resulting snapshot
	BackupCreated string
	Errors        []string
}

// FromJSONL reads items from a JSONL file. Malformed or invalid lines
// are collected in skipped; a duplicated id keeps the later line.
func FromJSONL(path string) (items []canvas.Item, skipped []string, err error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	byID := make(map[string]int)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var item canvas.Item
		if err := json.Unmarshal(line, &item); err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}
		if err := item.Validate(); err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		if idx, seen := byID[item.ID]; seen {
			items[idx] = item
			continue
		}
		byID[item.ID] = len(items)
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read JSONL file: %w", err)
	}

	return items, skipped, nil
}

// Run performs the import.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.FromJSONL == "" {
		return nil, fmt.Errorf("no input file given")
	}
	if opts.ToSnapshot == "" {
		return nil, fmt.Errorf("no snapshot path given")
	}

	if _, err := os.Stat(opts.FromJSONL); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	items, skipped, err := FromJSONL(opts.FromJSONL)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ItemsImported: len(items),
		ItemsSkipped:  len(skipped),
		Errors:        skipped,
	}

	snap := &canvas.Snapshot{Items: items}
	if opts.Merge {
		snap, err = mergeInto(opts.ToSnapshot, items)
		if err != nil {
			return nil, err
		}
	}
	if opts.Title != "" {
		snap.GlobalTitle = opts.Title
	}
	result.TotalItems = snap.ItemCount()

	if opts.DryRun {
		return result, nil
	}

	if opts.Backup {
		backup, err := backupSnapshot(opts.ToSnapshot)
		if err != nil {
			return nil, err
		}
		result.BackupCreated = backup
	}

	if err := canvas.WriteFile(opts.ToSnapshot, snap); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return result, nil
}

// mergeInto loads the existing snapshot and overlays the imported
// items: matching ids are replaced in place, new items are appended in
// input order. A missing snapshot merges into an empty one.
func mergeInto(path string, items []canvas.Item) (*canvas.Snapshot, error) {
	snap, err := canvas.ReadFile(path)
	if err != nil {
		if errors.Is(err, canvas.ErrNoSnapshot) {
			snap = &canvas.Snapshot{}
		} else {
			return nil, fmt.Errorf("failed to read existing snapshot: %w", err)
		}
	}

	byID := make(map[string]int, len(snap.Items))
	for i, item := range snap.Items {
		byID[item.ID] = i
	}

	for _, item := range items {
		if idx, ok := byID[item.ID]; ok {
			snap.Items[idx] = item
			continue
		}
		byID[item.ID] = len(snap.Items)
		snap.Items = append(snap.Items, item)
	}
	return snap, nil
}

// backupSnapshot copies the existing snapshot aside. A missing
// snapshot needs no backup.
func backupSnapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read snapshot for backup: %w", err)
	}

	backupPath := path + ".backup." + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}
