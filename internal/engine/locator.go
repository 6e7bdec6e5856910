package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"sheetsync/internal/handle"
	"sheetsync/internal/rowmap"
	"sheetsync/internal/sheet"
)

// SheetService is the slice of spreadsheet operations the engine
// needs. *sheet.Service satisfies it.
type SheetService interface {
	Create(ctx context.Context, title, tab string, columns int) (string, error)
	EnsureTab(ctx context.Context, spreadsheetID, tab string) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error
	URL(spreadsheetID string) string
}

// ResourceLocator resolves the spreadsheet a sync run writes to. It
// reuses the persisted handle when its spreadsheet still exists,
// recreates the spreadsheet once when the handle turned stale (the
// user deleted it remotely), and creates everything on first use.
type ResourceLocator struct {
	store  handle.Store
	sheets SheetService
	title  string
	tab    string
	logger *log.Logger
}

// NewResourceLocator creates a locator. A nil logger falls back to a
// default stderr logger.
func NewResourceLocator(store handle.Store, sheets SheetService, title, tab string, logger *log.Logger) *ResourceLocator {
	if logger == nil {
		logger = log.New(os.Stderr, "[locator] ", log.LstdFlags)
	}
	return &ResourceLocator{
		store:  store,
		sheets: sheets,
		title:  title,
		tab:    tab,
		logger: logger,
	}
}

// Resolve returns the handle of a spreadsheet that is confirmed to
// exist with the data tab in place. created reports whether this call
// made a new spreadsheet, in which case any change cursor tied to the
// old one must be reset.
//
// A stale handle is recovered at most once per call: if the persisted
// spreadsheet is gone a single replacement is created, and a failure
// to create it is returned rather than retried.
func (l *ResourceLocator) Resolve(ctx context.Context) (*handle.Handle, bool, error) {
	h, err := l.store.Load()
	if err != nil {
		// An unreadable handle must not block syncing forever.
		l.logger.Printf("handle load failed, treating as missing: %v", err)
		h = nil
	}

	if h != nil {
		err := l.sheets.EnsureTab(ctx, h.SpreadsheetID, l.tab)
		if err == nil {
			return h, false, nil
		}
		if !sheet.IsNotFound(err) {
			return nil, false, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
		}
		l.logger.Printf("spreadsheet %s no longer exists, creating a replacement", h.SpreadsheetID)
	}

	fresh, err := l.CreateNew(ctx, "")
	if err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// CreateNew creates a fresh spreadsheet regardless of any persisted
// handle, replacing the handle with the new one. An empty title uses
// the locator's configured title. Handle persistence failure is logged
// but not fatal; the spreadsheet exists and this run can still use it.
func (l *ResourceLocator) CreateNew(ctx context.Context, title string) (*handle.Handle, error) {
	if title == "" {
		title = l.title
	}

	id, err := l.sheets.Create(ctx, title, l.tab, rowmap.Columns())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceCreation, err)
	}

	now := time.Now().UTC()
	h := &handle.Handle{
		SpreadsheetID: id,
		SheetTitle:    l.tab,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.store.Save(h); err != nil {
		l.logger.Printf("failed to persist handle for %s: %v", id, err)
	}
	return h, nil
}

// Current returns the persisted handle without checking the remote,
// or nil when none exists.
func (l *ResourceLocator) Current() (*handle.Handle, error) {
	return l.store.Load()
}

// Invalidate drops the persisted handle so the next resolve creates a
// fresh spreadsheet.
func (l *ResourceLocator) Invalidate() error {
	if err := l.store.Clear(); err != nil {
		return fmt.Errorf("failed to invalidate handle: %w", err)
	}
	return nil
}
