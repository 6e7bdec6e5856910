// Package engine implements the snapshot sync pipeline: it gates on an
// active Google Sheets connection, resolves the target spreadsheet
// (creating or recreating it as needed), skips unchanged snapshots and
// rewrites the data tab when the canvas changed.
//
// The engine is the failure boundary. Sync reports every outcome,
// including failures, as a SyncResult instead of returning an error,
// so callers always get status, target and message together.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"sheetsync/internal/canvas"
	"sheetsync/internal/rowmap"
	"sheetsync/internal/sheet"
)

// Recorder persists finished sync runs. The history store satisfies
// it.
type Recorder interface {
	Record(ctx context.Context, result SyncResult) error
}

// Notifier observes sync outcomes as they happen. The dashboard
// broadcaster satisfies it.
type Notifier interface {
	OnSyncResult(result SyncResult)
	OnAuthRequired(url string)
}

// Config assembles an Engine. Gate, Locator, Sheets and Tab are
// required; the rest default.
type Config struct {
	Gate    *AuthGate
	Locator *ResourceLocator
	Sheets  SheetService
	Tab     string

	// Detector defaults to a fresh change detector, meaning the first
	// sync of the process always writes.
	Detector *ChangeDetector

	// Recorder and Notifier are optional observers of finished runs.
	Recorder Recorder
	Notifier Notifier

	Logger *log.Logger
}

// Engine runs syncs. All operations that touch the remote are
// serialized by an internal mutex, so concurrent triggers (CLI, file
// watcher, dashboard) never interleave their writes.
type Engine struct {
	mu       sync.Mutex
	gate     *AuthGate
	locator  *ResourceLocator
	detector *ChangeDetector
	sheets   SheetService
	tab      string
	recorder Recorder
	notifier Notifier
	logger   *log.Logger
}

// New creates an Engine from the config.
func New(cfg Config) *Engine {
	if cfg.Detector == nil {
		cfg.Detector = NewChangeDetector()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		gate:     cfg.Gate,
		locator:  cfg.Locator,
		detector: cfg.Detector,
		sheets:   cfg.Sheets,
		tab:      cfg.Tab,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Sync pushes one snapshot to the spreadsheet. A nil snapshot is
// treated as empty, which still writes the header row. The result is
// recorded and broadcast before returning.
func (e *Engine) Sync(ctx context.Context, snap *canvas.Snapshot) SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	result := e.sync(ctx, snap)
	result.Duration = time.Since(start)

	e.record(ctx, result)
	e.notify(result)
	return result
}

func (e *Engine) sync(ctx context.Context, snap *canvas.Snapshot) SyncResult {
	if snap == nil {
		snap = &canvas.Snapshot{}
	}
	if err := snap.Validate(); err != nil {
		return e.fail(fmt.Errorf("invalid snapshot: %w", err))
	}

	status, err := e.gate.Status(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", ErrRemoteCall, err))
	}
	if !status.Connected {
		return e.needsAuth(ctx)
	}

	h, created, err := e.locator.Resolve(ctx)
	if err != nil {
		return e.fail(err)
	}
	if created {
		// Rows committed to the old spreadsheet say nothing about
		// this one; force a full write.
		e.detector.Reset()
	}

	result := SyncResult{
		SpreadsheetID:  h.SpreadsheetID,
		SpreadsheetURL: e.sheets.URL(h.SpreadsheetID),
	}

	if !e.detector.ShouldSync(snap) {
		result.Status = StatusSkipped
		result.Message = "Canvas unchanged since last sync, skipping"
		return result
	}

	rows := rowmap.MapAll(snap.Items, time.Now().UTC())
	values := make([][]string, 0, len(rows)+1)
	values = append(values, rowmap.Header())
	values = append(values, rows...)

	if err := e.sheets.Clear(ctx, h.SpreadsheetID, sheet.WholeTabRange(e.tab)); err != nil {
		return e.failWith(result, fmt.Errorf("%w: %v", ErrRemoteCall, err))
	}
	if err := e.sheets.Append(ctx, h.SpreadsheetID, sheet.AnchorRange(e.tab), values); err != nil {
		return e.failWith(result, fmt.Errorf("%w: %v", ErrRemoteCall, err))
	}

	e.detector.Commit(snap)

	result.Status = StatusOK
	result.RowCount = len(rows)
	result.Message = fmt.Sprintf("Synced %d items to Google Sheets: %s", len(rows), result.SpreadsheetURL)
	e.logger.Printf("synced %d items to %s", len(rows), h.SpreadsheetID)
	return result
}

// CreateFresh creates a brand-new spreadsheet, replacing the persisted
// handle, and optionally syncs a snapshot into it. An empty title uses
// the configured default.
func (e *Engine) CreateFresh(ctx context.Context, title string, snap *canvas.Snapshot) SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	result := e.createFresh(ctx, title, snap)
	result.Duration = time.Since(start)

	e.record(ctx, result)
	e.notify(result)
	return result
}

func (e *Engine) createFresh(ctx context.Context, title string, snap *canvas.Snapshot) SyncResult {
	status, err := e.gate.Status(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", ErrRemoteCall, err))
	}
	if !status.Connected {
		return e.needsAuth(ctx)
	}

	h, err := e.locator.CreateNew(ctx, title)
	if err != nil {
		return e.fail(err)
	}
	e.detector.Reset()

	result := SyncResult{
		Status:         StatusOK,
		SpreadsheetID:  h.SpreadsheetID,
		SpreadsheetURL: e.sheets.URL(h.SpreadsheetID),
	}

	if snap == nil {
		result.Message = "Created spreadsheet: " + result.SpreadsheetURL
		return result
	}
	if err := snap.Validate(); err != nil {
		return e.failWith(result, fmt.Errorf("invalid snapshot: %w", err))
	}

	// The sheet is empty, so a clear would be a wasted call.
	rows := rowmap.MapAll(snap.Items, time.Now().UTC())
	values := make([][]string, 0, len(rows)+1)
	values = append(values, rowmap.Header())
	values = append(values, rows...)

	if err := e.sheets.Append(ctx, h.SpreadsheetID, sheet.AnchorRange(e.tab), values); err != nil {
		return e.failWith(result, fmt.Errorf("%w: %v", ErrRemoteCall, err))
	}
	e.detector.Commit(snap)

	result.RowCount = len(rows)
	result.Message = fmt.Sprintf("Created spreadsheet and synced %d items: %s", len(rows), result.SpreadsheetURL)
	return result
}

// SheetURL returns the URL of the managed spreadsheet, or
// ErrNoSpreadsheet when no sync has created one yet. No remote call is
// made; a stale handle still yields its URL.
func (e *Engine) SheetURL() (string, error) {
	h, err := e.locator.Current()
	if err != nil {
		return "", fmt.Errorf("failed to load handle: %w", err)
	}
	if h == nil {
		return "", ErrNoSpreadsheet
	}
	return e.sheets.URL(h.SpreadsheetID), nil
}

// CheckAuth reports the connection status and, when not connected, a
// best-effort authorization URL.
func (e *Engine) CheckAuth(ctx context.Context) (AuthStatus, string, error) {
	status, err := e.gate.Status(ctx)
	if err != nil {
		return AuthStatus{}, "", err
	}
	if status.Connected {
		return status, "", nil
	}

	url, err := e.gate.RemediationURL(ctx)
	if err != nil {
		e.logger.Printf("could not generate authorization URL: %v", err)
		return status, "", nil
	}
	return status, url, nil
}

// AuthURL starts a connection attempt and returns the OAuth URL.
func (e *Engine) AuthURL(ctx context.Context) (string, error) {
	return e.gate.RemediationURL(ctx)
}

func (e *Engine) needsAuth(ctx context.Context) SyncResult {
	result := SyncResult{Status: StatusNeedsAuth, Err: ErrAuthRequired}

	url, err := e.gate.RemediationURL(ctx)
	if err != nil {
		e.logger.Printf("could not generate authorization URL: %v", err)
		result.Message = "Google Sheets is not connected and no authorization URL could be generated; check the auth config"
		return result
	}
	result.AuthURL = url
	result.Message = "Google Sheets is not connected. Open this URL to authorize access: " + url
	return result
}

func (e *Engine) fail(err error) SyncResult {
	return e.failWith(SyncResult{}, err)
}

func (e *Engine) failWith(result SyncResult, err error) SyncResult {
	result.Status = StatusError
	result.Err = err
	result.Message = fmt.Sprintf("Sync failed: %v", err)
	e.logger.Printf("sync failed: %v", err)
	return result
}

func (e *Engine) record(ctx context.Context, result SyncResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, result); err != nil {
		e.logger.Printf("failed to record sync run: %v", err)
	}
}

func (e *Engine) notify(result SyncResult) {
	if e.notifier == nil {
		return
	}
	e.notifier.OnSyncResult(result)
	if result.Status == StatusNeedsAuth {
		e.notifier.OnAuthRequired(result.AuthURL)
	}
}
