package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"sheetsync/internal/canvas"
	"sheetsync/internal/composio"
	"sheetsync/internal/handle"
	"sheetsync/internal/sheet"
)

// fakeSheets scripts the spreadsheet operations and records calls.
type fakeSheets struct {
	createErr error
	ensureErr error
	clearErr  error
	appendErr error

	created  []string // titles passed to Create
	ensured  []string // spreadsheet ids checked by EnsureTab
	cleared  []string // ranges cleared
	appended [][][]string

	idCounter int
	gone      map[string]bool // ids whose spreadsheet was deleted remotely
}

func (f *fakeSheets) Create(ctx context.Context, title, tab string, columns int) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.idCounter++
	f.created = append(f.created, title)
	return fmt.Sprintf("sheet-%d", f.idCounter), nil
}

func (f *fakeSheets) EnsureTab(ctx context.Context, spreadsheetID, tab string) error {
	f.ensured = append(f.ensured, spreadsheetID)
	if f.gone[spreadsheetID] {
		return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, sheet.ErrNotFound)
	}
	return f.ensureErr
}

func (f *fakeSheets) Clear(ctx context.Context, spreadsheetID, rng string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeSheets) Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, values)
	return nil
}

func (f *fakeSheets) URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

// writes counts remote mutations plus metadata reads.
func (f *fakeSheets) writes() int {
	return len(f.created) + len(f.cleared) + len(f.appended)
}

// fakeConnector scripts the Composio connection API.
type fakeConnector struct {
	accounts    []composio.ConnectedAccount
	accountsErr error
	redirectURL string
	initiateErr error

	listCalls int
	initiated []string
}

func (f *fakeConnector) ConnectedAccounts(ctx context.Context) ([]composio.ConnectedAccount, error) {
	f.listCalls++
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return f.accounts, nil
}

func (f *fakeConnector) InitiateConnection(ctx context.Context, authConfigID string) (string, error) {
	f.initiated = append(f.initiated, authConfigID)
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	return f.redirectURL, nil
}

func connectedConn() *fakeConnector {
	return &fakeConnector{
		accounts: []composio.ConnectedAccount{
			{ID: "acct-1", Status: "ACTIVE", ToolkitSlug: "googlesheets"},
		},
		redirectURL: "https://connect.example/oauth",
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// testEngine wires an engine over in-memory fakes.
func testEngine(t *testing.T, sheets *fakeSheets, conn *fakeConnector) (*Engine, *handle.MemoryStore) {
	t.Helper()
	store := handle.NewMemoryStore()
	logger := quietLogger()
	eng := New(Config{
		Gate:    NewAuthGate(conn, "googlesheets", "ac_test", logger),
		Locator: NewResourceLocator(store, sheets, "Canvas Data", "Canvas Items", logger),
		Sheets:  sheets,
		Tab:     "Canvas Items",
		Logger:  logger,
	})
	return eng, store
}

func testSnapshot(names ...string) *canvas.Snapshot {
	items := make([]canvas.Item, 0, len(names))
	for i, name := range names {
		items = append(items, canvas.Item{
			ID:   fmt.Sprintf("item-%d", i+1),
			Type: canvas.TypeNote,
			Name: name,
		})
	}
	return &canvas.Snapshot{Items: items}
}

func TestEngine_Sync_FirstRunCreates(t *testing.T) {
	sheets := &fakeSheets{}
	eng, store := testEngine(t, sheets, connectedConn())

	result := eng.Sync(context.Background(), testSnapshot("Alpha", "Beta"))

	if result.Status != StatusOK {
		t.Fatalf("Status = %v (err %v), want ok", result.Status, result.Err)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if result.SpreadsheetID != "sheet-1" {
		t.Errorf("SpreadsheetID = %q, want sheet-1", result.SpreadsheetID)
	}
	if !strings.Contains(result.SpreadsheetURL, "sheet-1") {
		t.Errorf("SpreadsheetURL = %q", result.SpreadsheetURL)
	}
	if len(sheets.created) != 1 {
		t.Errorf("Create calls = %d, want 1", len(sheets.created))
	}
	if sheets.created[0] != "Canvas Data" {
		t.Errorf("created title = %q, want the default", sheets.created[0])
	}
	if len(sheets.cleared) != 1 || len(sheets.appended) != 1 {
		t.Errorf("cleared %d, appended %d, want 1 each", len(sheets.cleared), len(sheets.appended))
	}

	// Header plus one row per item.
	values := sheets.appended[0]
	if len(values) != 3 {
		t.Fatalf("appended %d rows, want 3", len(values))
	}
	if values[0][0] != "ID" {
		t.Errorf("first row = %v, want the header", values[0])
	}
	if values[1][2] != "Alpha" || values[2][2] != "Beta" {
		t.Errorf("item rows lost canvas order: %v / %v", values[1], values[2])
	}

	h, err := store.Load()
	if err != nil || h == nil {
		t.Fatalf("handle not persisted: %v, %v", h, err)
	}
	if h.SpreadsheetID != "sheet-1" {
		t.Errorf("persisted handle id = %q", h.SpreadsheetID)
	}
}

func TestEngine_Sync_SkipsUnchanged(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())
	snap := testSnapshot("Alpha")

	first := eng.Sync(context.Background(), snap)
	if first.Status != StatusOK {
		t.Fatalf("first sync: %v (%v)", first.Status, first.Err)
	}
	writesAfterFirst := sheets.writes()

	second := eng.Sync(context.Background(), snap)
	if second.Status != StatusSkipped {
		t.Fatalf("second sync Status = %v, want skipped", second.Status)
	}
	if sheets.writes() != writesAfterFirst {
		t.Errorf("skipped sync still wrote: %d -> %d", writesAfterFirst, sheets.writes())
	}
	if second.SpreadsheetID != first.SpreadsheetID {
		t.Errorf("skipped result lost the spreadsheet id: %q", second.SpreadsheetID)
	}
	if second.RowCount != 0 {
		t.Errorf("skipped RowCount = %d, want 0", second.RowCount)
	}
}

func TestEngine_Sync_ResyncsChanged(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())

	if r := eng.Sync(context.Background(), testSnapshot("Alpha")); r.Status != StatusOK {
		t.Fatalf("first sync: %v", r.Err)
	}
	r := eng.Sync(context.Background(), testSnapshot("Alpha renamed"))
	if r.Status != StatusOK {
		t.Fatalf("second sync Status = %v, want ok", r.Status)
	}
	if len(sheets.appended) != 2 {
		t.Fatalf("appends = %d, want 2", len(sheets.appended))
	}
	last := sheets.appended[1]
	if last[1][2] != "Alpha renamed" {
		t.Errorf("second write row = %v", last[1])
	}
}

func TestEngine_Sync_ReusesExistingSpreadsheet(t *testing.T) {
	sheets := &fakeSheets{}
	eng, store := testEngine(t, sheets, connectedConn())

	if err := store.Save(&handle.Handle{SpreadsheetID: "existing-9", SheetTitle: "Canvas Items"}); err != nil {
		t.Fatal(err)
	}

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v)", result.Status, result.Err)
	}
	if len(sheets.created) != 0 {
		t.Errorf("Create calls = %d, want 0 when the handle is valid", len(sheets.created))
	}
	if result.SpreadsheetID != "existing-9" {
		t.Errorf("SpreadsheetID = %q, want existing-9", result.SpreadsheetID)
	}
	if len(sheets.ensured) != 1 || sheets.ensured[0] != "existing-9" {
		t.Errorf("ensured = %v, want the persisted id", sheets.ensured)
	}
}

func TestEngine_Sync_RecreatesStaleSpreadsheet(t *testing.T) {
	sheets := &fakeSheets{gone: map[string]bool{}}
	eng, store := testEngine(t, sheets, connectedConn())
	snap := testSnapshot("Alpha")

	if r := eng.Sync(context.Background(), snap); r.Status != StatusOK {
		t.Fatalf("first sync: %v", r.Err)
	}

	// The user deletes the spreadsheet remotely.
	sheets.gone["sheet-1"] = true

	// Same snapshot, but the replacement sheet is empty, so the
	// unchanged fingerprint must not suppress the write.
	result := eng.Sync(context.Background(), snap)
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v), want ok after recreation", result.Status, result.Err)
	}
	if result.SpreadsheetID != "sheet-2" {
		t.Errorf("SpreadsheetID = %q, want the replacement", result.SpreadsheetID)
	}
	if len(sheets.created) != 2 {
		t.Errorf("Create calls = %d, want 2", len(sheets.created))
	}
	if len(sheets.appended) != 2 {
		t.Errorf("appends = %d, want a full write into the replacement", len(sheets.appended))
	}

	h, _ := store.Load()
	if h == nil || h.SpreadsheetID != "sheet-2" {
		t.Errorf("handle = %+v, want sheet-2", h)
	}
}

func TestEngine_Sync_NotConnected(t *testing.T) {
	sheets := &fakeSheets{}
	conn := &fakeConnector{redirectURL: "https://connect.example/oauth"}
	eng, _ := testEngine(t, sheets, conn)

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))

	if result.Status != StatusNeedsAuth {
		t.Fatalf("Status = %v, want needs_auth", result.Status)
	}
	if !errors.Is(result.Err, ErrAuthRequired) {
		t.Errorf("Err = %v, want ErrAuthRequired", result.Err)
	}
	if result.AuthURL != "https://connect.example/oauth" {
		t.Errorf("AuthURL = %q", result.AuthURL)
	}
	if !strings.Contains(result.Message, "https://connect.example/oauth") {
		t.Errorf("Message = %q, want it to carry the URL", result.Message)
	}
	if sheets.writes() != 0 || len(sheets.ensured) != 0 {
		t.Errorf("unauthorized sync touched the spreadsheet API")
	}
}

func TestEngine_Sync_IgnoresInactiveAndForeignAccounts(t *testing.T) {
	tests := []struct {
		name     string
		accounts []composio.ConnectedAccount
	}{
		{
			name: "initiated account",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "INITIATED", ToolkitSlug: "googlesheets"},
			},
		},
		{
			name: "expired account",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "EXPIRED", ToolkitSlug: "googlesheets"},
			},
		},
		{
			name: "active account for another toolkit",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "ACTIVE", ToolkitSlug: "github"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheets := &fakeSheets{}
			conn := &fakeConnector{accounts: tt.accounts, redirectURL: "https://connect.example/oauth"}
			eng, _ := testEngine(t, sheets, conn)

			result := eng.Sync(context.Background(), testSnapshot("Alpha"))
			if result.Status != StatusNeedsAuth {
				t.Errorf("Status = %v, want needs_auth", result.Status)
			}
			if sheets.writes() != 0 {
				t.Error("gated sync still wrote")
			}
		})
	}
}

func TestEngine_Sync_NeedsAuthWithoutURL(t *testing.T) {
	conn := &fakeConnector{initiateErr: errors.New("auth config not found")}
	eng, _ := testEngine(t, &fakeSheets{}, conn)

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusNeedsAuth {
		t.Fatalf("Status = %v, want needs_auth", result.Status)
	}
	if result.AuthURL != "" {
		t.Errorf("AuthURL = %q, want empty", result.AuthURL)
	}
	if !strings.Contains(result.Message, "no authorization URL") {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestEngine_Sync_AccountCheckFails(t *testing.T) {
	conn := &fakeConnector{accountsErr: errors.New("api down")}
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, conn)

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !errors.Is(result.Err, ErrRemoteCall) {
		t.Errorf("Err = %v, want ErrRemoteCall", result.Err)
	}
	if !IsRetryable(result.Err) {
		t.Error("account check failure should be retryable")
	}
	if sheets.writes() != 0 {
		t.Error("failed auth check still wrote")
	}
}

func TestEngine_Sync_AppendFailureKeepsCursor(t *testing.T) {
	sheets := &fakeSheets{appendErr: errors.New("quota exceeded")}
	eng, _ := testEngine(t, sheets, connectedConn())
	snap := testSnapshot("Alpha")

	result := eng.Sync(context.Background(), snap)
	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !errors.Is(result.Err, ErrRemoteCall) {
		t.Errorf("Err = %v, want ErrRemoteCall", result.Err)
	}
	if result.SpreadsheetID == "" {
		t.Error("failed write should still report which spreadsheet it targeted")
	}

	// The cursor must not have advanced: the retry writes.
	sheets.appendErr = nil
	retry := eng.Sync(context.Background(), snap)
	if retry.Status != StatusOK {
		t.Fatalf("retry Status = %v (%v), want ok", retry.Status, retry.Err)
	}
	if len(sheets.appended) != 1 {
		t.Errorf("appends = %d, want exactly the retry's", len(sheets.appended))
	}
}

func TestEngine_Sync_ClearFailureStopsBeforeAppend(t *testing.T) {
	sheets := &fakeSheets{clearErr: errors.New("backend error")}
	eng, _ := testEngine(t, sheets, connectedConn())

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if len(sheets.appended) != 0 {
		t.Error("append ran after the clear failed")
	}
}

func TestEngine_Sync_EmptySnapshotWritesHeaderOnly(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())

	result := eng.Sync(context.Background(), &canvas.Snapshot{})
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v)", result.Status, result.Err)
	}
	if result.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", result.RowCount)
	}
	if len(sheets.appended) != 1 || len(sheets.appended[0]) != 1 {
		t.Fatalf("appended = %v, want a single header row", sheets.appended)
	}
	if sheets.appended[0][0][0] != "ID" {
		t.Errorf("header row = %v", sheets.appended[0][0])
	}
}

func TestEngine_Sync_NilSnapshot(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())

	result := eng.Sync(context.Background(), nil)
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v), want ok for nil snapshot", result.Status, result.Err)
	}
	if result.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", result.RowCount)
	}
}

func TestEngine_Sync_InvalidSnapshot(t *testing.T) {
	conn := connectedConn()
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, conn)

	snap := &canvas.Snapshot{Items: []canvas.Item{
		{ID: "dup", Type: canvas.TypeNote, Name: "a"},
		{ID: "dup", Type: canvas.TypeNote, Name: "b"},
	}}
	result := eng.Sync(context.Background(), snap)

	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if conn.listCalls != 0 || sheets.writes() != 0 {
		t.Error("invalid snapshot still reached the remote")
	}
}

func TestEngine_Sync_CreateFailure(t *testing.T) {
	sheets := &fakeSheets{createErr: errors.New("rate limited")}
	eng, _ := testEngine(t, sheets, connectedConn())

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !errors.Is(result.Err, ErrResourceCreation) {
		t.Errorf("Err = %v, want ErrResourceCreation", result.Err)
	}
	if !IsRetryable(result.Err) {
		t.Error("creation failure should be retryable")
	}
}

func TestEngine_Sync_UnreachableSpreadsheet(t *testing.T) {
	sheets := &fakeSheets{ensureErr: errors.New("quota exceeded")}
	eng, store := testEngine(t, sheets, connectedConn())
	if err := store.Save(&handle.Handle{SpreadsheetID: "existing-9"}); err != nil {
		t.Fatal(err)
	}

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !errors.Is(result.Err, ErrResourceUnavailable) {
		t.Errorf("Err = %v, want ErrResourceUnavailable", result.Err)
	}
	if len(sheets.created) != 0 {
		t.Error("a transient failure must not trigger recreation")
	}
}

func TestEngine_CreateFresh(t *testing.T) {
	sheets := &fakeSheets{}
	eng, store := testEngine(t, sheets, connectedConn())

	// Seed an existing handle; CreateFresh must replace it.
	if r := eng.Sync(context.Background(), testSnapshot("Alpha")); r.Status != StatusOK {
		t.Fatalf("seed sync: %v", r.Err)
	}

	result := eng.CreateFresh(context.Background(), "Quarterly Report", nil)
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v)", result.Status, result.Err)
	}
	if result.SpreadsheetID != "sheet-2" {
		t.Errorf("SpreadsheetID = %q, want sheet-2", result.SpreadsheetID)
	}
	if sheets.created[1] != "Quarterly Report" {
		t.Errorf("created title = %q", sheets.created[1])
	}
	if result.RowCount != 0 || len(sheets.appended) != 1 {
		t.Errorf("bare create should not write data rows")
	}
	if !strings.Contains(result.Message, "Created spreadsheet") {
		t.Errorf("Message = %q", result.Message)
	}

	h, _ := store.Load()
	if h == nil || h.SpreadsheetID != "sheet-2" {
		t.Errorf("handle = %+v, want the fresh spreadsheet", h)
	}
}

func TestEngine_CreateFresh_WithData(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())

	result := eng.CreateFresh(context.Background(), "", testSnapshot("Alpha", "Beta"))
	if result.Status != StatusOK {
		t.Fatalf("Status = %v (%v)", result.Status, result.Err)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if sheets.created[0] != "Canvas Data" {
		t.Errorf("empty title should fall back to the default, got %q", sheets.created[0])
	}
	if len(sheets.cleared) != 0 {
		t.Error("fresh spreadsheet should not need a clear")
	}

	// The snapshot was committed; an immediate sync skips.
	follow := eng.Sync(context.Background(), testSnapshot("Alpha", "Beta"))
	if follow.Status != StatusSkipped {
		t.Errorf("follow-up Status = %v, want skipped", follow.Status)
	}
}

func TestEngine_CreateFresh_ResetsCursor(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())
	snap := testSnapshot("Alpha")

	if r := eng.Sync(context.Background(), snap); r.Status != StatusOK {
		t.Fatalf("seed sync: %v", r.Err)
	}
	if r := eng.CreateFresh(context.Background(), "", nil); r.Status != StatusOK {
		t.Fatalf("create fresh: %v", r.Err)
	}

	// The fresh spreadsheet is empty, so the old fingerprint must not
	// suppress this write.
	result := eng.Sync(context.Background(), snap)
	if result.Status != StatusOK {
		t.Fatalf("Status = %v, want ok after fresh create", result.Status)
	}
	if result.SpreadsheetID != "sheet-2" {
		t.Errorf("SpreadsheetID = %q, want sheet-2", result.SpreadsheetID)
	}
}

func TestEngine_SheetURL(t *testing.T) {
	sheets := &fakeSheets{}
	eng, _ := testEngine(t, sheets, connectedConn())

	if _, err := eng.SheetURL(); !errors.Is(err, ErrNoSpreadsheet) {
		t.Errorf("SheetURL() before any sync: err = %v, want ErrNoSpreadsheet", err)
	}

	if r := eng.Sync(context.Background(), testSnapshot("Alpha")); r.Status != StatusOK {
		t.Fatalf("sync: %v", r.Err)
	}
	url, err := eng.SheetURL()
	if err != nil {
		t.Fatalf("SheetURL() error = %v", err)
	}
	if url != "https://docs.google.com/spreadsheets/d/sheet-1" {
		t.Errorf("SheetURL() = %q", url)
	}
}

func TestEngine_CheckAuth(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		eng, _ := testEngine(t, &fakeSheets{}, connectedConn())
		status, url, err := eng.CheckAuth(context.Background())
		if err != nil {
			t.Fatalf("CheckAuth() error = %v", err)
		}
		if !status.Connected || status.AccountID != "acct-1" {
			t.Errorf("status = %+v", status)
		}
		if url != "" {
			t.Errorf("url = %q, want empty when connected", url)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		conn := &fakeConnector{redirectURL: "https://connect.example/oauth"}
		eng, _ := testEngine(t, &fakeSheets{}, conn)
		status, url, err := eng.CheckAuth(context.Background())
		if err != nil {
			t.Fatalf("CheckAuth() error = %v", err)
		}
		if status.Connected {
			t.Error("status.Connected = true, want false")
		}
		if url != "https://connect.example/oauth" {
			t.Errorf("url = %q", url)
		}
	})
}

// recordingObserver implements Recorder and Notifier for tests.
type recordingObserver struct {
	recorded  []SyncResult
	recordErr error
	notified  []SyncResult
	authURLs  []string
}

func (o *recordingObserver) Record(ctx context.Context, result SyncResult) error {
	o.recorded = append(o.recorded, result)
	return o.recordErr
}

func (o *recordingObserver) OnSyncResult(result SyncResult) {
	o.notified = append(o.notified, result)
}

func (o *recordingObserver) OnAuthRequired(url string) {
	o.authURLs = append(o.authURLs, url)
}

func TestEngine_RecordsAndNotifies(t *testing.T) {
	obs := &recordingObserver{}
	sheets := &fakeSheets{}
	store := handle.NewMemoryStore()
	logger := quietLogger()
	conn := connectedConn()
	eng := New(Config{
		Gate:     NewAuthGate(conn, "googlesheets", "ac_test", logger),
		Locator:  NewResourceLocator(store, sheets, "Canvas Data", "Canvas Items", logger),
		Sheets:   sheets,
		Tab:      "Canvas Items",
		Recorder: obs,
		Notifier: obs,
		Logger:   logger,
	})

	if r := eng.Sync(context.Background(), testSnapshot("Alpha")); r.Status != StatusOK {
		t.Fatalf("sync: %v", r.Err)
	}
	if len(obs.recorded) != 1 || obs.recorded[0].Status != StatusOK {
		t.Errorf("recorded = %+v", obs.recorded)
	}
	if len(obs.notified) != 1 {
		t.Errorf("notified %d results, want 1", len(obs.notified))
	}
	if obs.recorded[0].Duration <= 0 {
		t.Error("recorded result has no duration")
	}

	// Auth-gated runs notify the auth hook too.
	conn.accounts = nil
	r := eng.Sync(context.Background(), testSnapshot("Beta"))
	if r.Status != StatusNeedsAuth {
		t.Fatalf("Status = %v", r.Status)
	}
	if len(obs.authURLs) != 1 || obs.authURLs[0] != "https://connect.example/oauth" {
		t.Errorf("authURLs = %v", obs.authURLs)
	}
}

func TestEngine_RecorderFailureDoesNotFailSync(t *testing.T) {
	obs := &recordingObserver{recordErr: errors.New("db locked")}
	sheets := &fakeSheets{}
	store := handle.NewMemoryStore()
	logger := quietLogger()
	eng := New(Config{
		Gate:     NewAuthGate(connectedConn(), "googlesheets", "ac_test", logger),
		Locator:  NewResourceLocator(store, sheets, "Canvas Data", "Canvas Items", logger),
		Sheets:   sheets,
		Tab:      "Canvas Items",
		Recorder: obs,
		Logger:   logger,
	})

	result := eng.Sync(context.Background(), testSnapshot("Alpha"))
	if result.Status != StatusOK {
		t.Errorf("Status = %v, recorder failure must not fail the sync", result.Status)
	}
}
