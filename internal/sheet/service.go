// Package sheet performs spreadsheet operations through the toolkit's
// Google Sheets tools: creating spreadsheets, ensuring the data tab
// exists, clearing ranges and appending rows.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"sheetsync/internal/composio"
)

// Tool slugs for the Google Sheets toolkit.
const (
	toolCreate     = "GOOGLESHEETS_CREATE_GOOGLE_SHEET1"
	toolInfo       = "GOOGLESHEETS_GET_SPREADSHEET_INFO"
	toolBatchEdit  = "GOOGLESHEETS_BATCH_UPDATE"
	toolBatchClear = "GOOGLESHEETS_BATCH_CLEAR_VALUES"
	toolClear      = "GOOGLESHEETS_CLEAR_VALUES"
	toolAppend     = "GOOGLESHEETS_SPREADSHEETS_VALUES_APPEND"
)

// Created spreadsheets get a fixed-size grid; syncs rewrite the whole
// tab, so the row budget only bounds one snapshot.
const gridRows = 1000

// ErrNotFound marks remote responses saying the spreadsheet (or tab)
// no longer exists. The locator uses it to confirm a stale handle.
var ErrNotFound = errors.New("spreadsheet not found")

// ToolRunner executes one toolkit tool. *composio.Client satisfies it.
type ToolRunner interface {
	Execute(ctx context.Context, slug string, args map[string]any) (*composio.ToolResult, error)
}

// Service wraps the raw tools into spreadsheet operations.
type Service struct {
	runner ToolRunner
	logger *log.Logger
}

// NewService creates a Service. A nil logger falls back to a default
// stderr logger.
func NewService(runner ToolRunner, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[sheet] ", log.LstdFlags)
	}
	return &Service{runner: runner, logger: logger}
}

// Create makes a new spreadsheet with a single tab sized to the column
// count and returns its id.
func (s *Service) Create(ctx context.Context, title, tab string, columns int) (string, error) {
	args := map[string]any{
		"title": title,
		"sheets": []any{
			map[string]any{
				"properties": map[string]any{
					"title": tab,
					"gridProperties": map[string]any{
						"rowCount":    gridRows,
						"columnCount": columns,
					},
				},
			},
		},
	}

	result, err := s.runner.Execute(ctx, toolCreate, args)
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	id, ok := composio.FirstString(result.Data,
		"spreadsheetId",
		"spreadsheet_id",
		"response_data.spreadsheetId",
		"response_data.spreadsheet_id",
		"spreadsheet.spreadsheetId",
	)
	if !ok {
		return "", fmt.Errorf("create response contained no spreadsheet id")
	}

	s.logger.Printf("created spreadsheet %s (%q)", id, title)
	return id, nil
}

// EnsureTab makes sure the named tab exists in the spreadsheet. The
// operation is idempotent: an existing tab, including the remote
// reporting "already exists" on the add, is success. A spreadsheet that
// no longer exists surfaces as ErrNotFound.
func (s *Service) EnsureTab(ctx context.Context, spreadsheetID, tab string) error {
	result, err := s.runner.Execute(ctx, toolInfo, map[string]any{
		"spreadsheet_id": spreadsheetID,
	})
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, ErrNotFound)
		}
		return fmt.Errorf("failed to inspect spreadsheet %s: %w", spreadsheetID, err)
	}

	if hasTab(result.Data, tab) {
		return nil
	}

	_, err = s.runner.Execute(ctx, toolBatchEdit, map[string]any{
		"spreadsheet_id": spreadsheetID,
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": tab},
				},
			},
		},
	})
	if err != nil {
		var toolErr *composio.ToolError
		if errors.As(err, &toolErr) && strings.Contains(strings.ToLower(toolErr.Message), "already exists") {
			return nil
		}
		if IsNotFound(err) {
			return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, ErrNotFound)
		}
		return fmt.Errorf("failed to add tab %q: %w", tab, err)
	}

	s.logger.Printf("added tab %q to spreadsheet %s", tab, spreadsheetID)
	return nil
}

// hasTab scans the metadata response for a sheet with the given title.
// The sheets list appears either at the top level or nested under a
// spreadsheet object depending on tool version.
func hasTab(data map[string]any, tab string) bool {
	sheets, ok := data["sheets"].([]any)
	if !ok {
		if nested := composio.FirstMap(data, "spreadsheet", "response_data"); nested != nil {
			sheets, _ = nested["sheets"].([]any)
		}
	}

	for _, raw := range sheets {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if title, ok := composio.FirstString(m, "properties.title", "title"); ok && title == tab {
			return true
		}
	}
	return false
}

// Clear empties the given range. The batch-clear tool is preferred; on
// any failure one single-range clear is attempted before giving up.
func (s *Service) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.runner.Execute(ctx, toolBatchClear, map[string]any{
		"spreadsheet_id": spreadsheetID,
		"ranges":         []any{rng},
	})
	if err == nil {
		return nil
	}

	s.logger.Printf("batch clear failed, falling back to single clear: %v", err)

	_, err = s.runner.Execute(ctx, toolClear, map[string]any{
		"spreadsheet_id": spreadsheetID,
		"range":          rng,
	})
	if err != nil {
		return fmt.Errorf("failed to clear range %s: %w", rng, err)
	}
	return nil
}

// Append writes the rows in one contiguous append anchored at the given
// range. Values are sent raw so the remote performs no interpretation
// of cell text.
func (s *Service) Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	rows := make([]any, 0, len(values))
	for _, row := range values {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		rows = append(rows, cells)
	}

	_, err := s.runner.Execute(ctx, toolAppend, map[string]any{
		"spreadsheet_id":   spreadsheetID,
		"range":            rng,
		"values":           rows,
		"valueInputOption": "RAW",
	})
	if err != nil {
		return fmt.Errorf("failed to append %d rows: %w", len(values), err)
	}
	return nil
}

// URL returns the browser URL for a spreadsheet id.
func (s *Service) URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

// WholeTabRange is the A1 range covering the entire tab, used for
// clears.
func WholeTabRange(tab string) string {
	return tab + "!A:ZZ"
}

// AnchorRange is the A1 range the contiguous append starts at.
func AnchorRange(tab string) string {
	return tab + "!A1"
}

// IsNotFound classifies remote errors that mean the target spreadsheet
// no longer exists. The tool API reports this with varying phrasings.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}

	var toolErr *composio.ToolError
	if !errors.As(err, &toolErr) {
		return false
	}
	msg := strings.ToLower(toolErr.Message)
	for _, marker := range []string{"not found", "does not exist", "requested entity", "404"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
