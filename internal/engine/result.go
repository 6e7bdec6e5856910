package engine

import "time"

// Status classifies the outcome of one sync attempt.
type Status string

const (
	// StatusOK means rows were written to the spreadsheet.
	StatusOK Status = "ok"

	// StatusSkipped means the snapshot was unchanged since the last
	// successful sync and no remote call was made.
	StatusSkipped Status = "skipped"

	// StatusNeedsAuth means no active Google Sheets connection exists
	// and the user must authorize before data can flow.
	StatusNeedsAuth Status = "needs_auth"

	// StatusError means the sync failed; Err carries the cause.
	StatusError Status = "error"
)

// String returns the status value for logs and persistence.
func (s Status) String() string {
	return string(s)
}

// SyncResult reports the outcome of one sync attempt. Sync never
// returns a Go error; failures are carried here so callers always get
// the full picture (status, target spreadsheet, message) in one value.
type SyncResult struct {
	Status         Status
	SpreadsheetID  string
	SpreadsheetURL string

	// AuthURL is the OAuth URL to open when Status is StatusNeedsAuth
	// and one could be generated.
	AuthURL string

	RowCount int
	Message  string
	Err      error
	Duration time.Duration
}

// Synced reports whether this run wrote rows.
func (r SyncResult) Synced() bool {
	return r.Status == StatusOK
}

// Failed reports whether this run ended in error. A skipped or
// needs-auth run is not a failure.
func (r SyncResult) Failed() bool {
	return r.Status == StatusError
}
