package engine

import (
	"context"
	"errors"
	"fmt"

	"sheetsync/internal/canvas"
)

// SnapshotSource provides the snapshot a sync should push.
// canvas.FileSource satisfies it.
type SnapshotSource interface {
	Current(ctx context.Context) (*canvas.Snapshot, error)
}

// Facade bundles the engine with a snapshot source behind operations
// that return a single human-readable string, the shape embedding
// surfaces (CLI output, tool responses) want.
type Facade struct {
	source SnapshotSource
	engine *Engine
}

// NewFacade creates a facade over the source and engine.
func NewFacade(source SnapshotSource, engine *Engine) *Facade {
	return &Facade{source: source, engine: engine}
}

// Engine exposes the underlying engine for callers that need the full
// SyncResult.
func (f *Facade) Engine() *Engine {
	return f.engine
}

// Sync reads the current snapshot and pushes it, returning the outcome
// as a message.
func (f *Facade) Sync(ctx context.Context) string {
	snap, err := f.source.Current(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to read canvas: %v", err)
	}
	return f.engine.Sync(ctx, snap).Message
}

// SheetURL returns the URL of the managed spreadsheet, or an
// explanation when none exists.
func (f *Facade) SheetURL(ctx context.Context) string {
	url, err := f.engine.SheetURL()
	if err != nil {
		if errors.Is(err, ErrNoSpreadsheet) {
			return "No spreadsheet has been created yet. Run a sync first."
		}
		return fmt.Sprintf("Failed to look up the spreadsheet: %v", err)
	}
	return url
}

// CreateNew creates a fresh spreadsheet, optionally syncing the
// current canvas into it. An empty title uses the configured default.
func (f *Facade) CreateNew(ctx context.Context, title string, withData bool) string {
	var snap *canvas.Snapshot
	if withData {
		s, err := f.source.Current(ctx)
		if err != nil {
			return fmt.Sprintf("Failed to read canvas: %v", err)
		}
		snap = s
	}
	return f.engine.CreateFresh(ctx, title, snap).Message
}

// CheckAuth reports the Google Sheets connection state, including an
// authorization URL when one is needed and available.
func (f *Facade) CheckAuth(ctx context.Context) string {
	status, url, err := f.engine.CheckAuth(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to check the Google Sheets connection: %v", err)
	}
	if status.Connected {
		return fmt.Sprintf("Google Sheets is connected (account %s).", status.AccountID)
	}
	if url == "" {
		return "Google Sheets is not connected and no authorization URL could be generated; check the auth config."
	}
	return "Google Sheets is not connected. Open this URL to authorize access: " + url
}
