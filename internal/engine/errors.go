package engine

import "errors"

// Common errors returned by sync operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(result.Err, engine.ErrAuthRequired) {
//	    // Prompt the user to connect their Google account
//	}
var (
	// ErrNotConfigured is returned when the sync cannot run because
	// required configuration (API key, auth config id) is missing.
	ErrNotConfigured = errors.New("sync not configured")

	// ErrAuthRequired is returned when no active Google Sheets
	// connection exists for the configured user.
	ErrAuthRequired = errors.New("authorization required")

	// ErrResourceCreation is returned when creating the spreadsheet
	// or its data tab failed.
	ErrResourceCreation = errors.New("failed to create spreadsheet resources")

	// ErrResourceUnavailable is returned when the managed spreadsheet
	// could not be reached even after recreating it once.
	ErrResourceUnavailable = errors.New("spreadsheet unavailable")

	// ErrRemoteCall is returned when a call to the tool API failed,
	// whether checking accounts or writing rows.
	ErrRemoteCall = errors.New("remote call failed")

	// ErrNoSpreadsheet is returned when an operation needs an existing
	// spreadsheet but no sync has created one yet.
	ErrNoSpreadsheet = errors.New("no spreadsheet exists yet")
)

// IsConfiguration returns true if the error means setup is incomplete
// and no amount of retrying will help until the user fixes it.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotConfigured)
}

// IsAuthRequired returns true if the error is resolved by the user
// completing the OAuth flow.
func IsAuthRequired(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuthRequired)
}

// IsRetryable returns true if a later sync attempt may succeed without
// any user intervention.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Remote write failures are usually transient API or quota issues.
	if errors.Is(err, ErrRemoteCall) {
		return true
	}

	// Creation can fail on rate limits and succeed on the next run.
	if errors.Is(err, ErrResourceCreation) {
		return true
	}

	if errors.Is(err, ErrResourceUnavailable) {
		return true
	}

	return false
}
