package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sheetsync/internal/config"
	"sheetsync/internal/history"
	"sheetsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show configuration, connection and sync state",
	Long: `Show the current state of the synchronizer in one place:

1. Which config file and canvas file are in use
2. The managed spreadsheet, if one exists yet
3. Whether Google Sheets is connected
4. A summary of the sync history

The command degrades gracefully: a missing API key or an unreachable
API is reported as part of the status instead of aborting.

Examples:
  sheetsync status
  sheetsync status --json`,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := mustLoadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "[status] ", log.LstdFlags)
		st := buildStack(cfg, logger)

		report := statusReport{
			ConfigFile: cfg.Path,
			CanvasFile: cfg.CanvasFile,
			Title:      cfg.SpreadsheetTitle,
			Tab:        cfg.SheetTitle,
		}
		if report.ConfigFile == "" {
			report.ConfigFile = "(defaults)"
		}

		if h, err := st.store.Load(); err == nil && h != nil {
			report.SpreadsheetID = h.SpreadsheetID
			report.SpreadsheetURL = st.sheets.URL(h.SpreadsheetID)
		}

		if err := cfg.Validate(); err != nil {
			report.AuthState = "unconfigured"
			report.AuthDetail = err.Error()
		} else if status, err := st.gate.Status(ctx); err != nil {
			report.AuthState = "unknown"
			report.AuthDetail = err.Error()
		} else if status.Connected {
			report.AuthState = "connected"
			report.AuthDetail = "account " + status.AccountID
		} else {
			report.AuthState = "disconnected"
			report.AuthDetail = "run 'sheetsync auth --connect'"
		}

		if hist, err := openHistoryQuiet(ctx, cfg); err == nil {
			if sum, err := hist.Summarize(ctx); err == nil {
				report.TotalRuns = sum.TotalRuns
				report.ByStatus = sum.ByStatus
				report.RowsSynced = sum.RowsSynced
				report.LastRunAt = sum.LastRunAt
			}
			hist.Close()
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		report.print()
	},
}

type statusReport struct {
	ConfigFile     string         `json:"config_file"`
	CanvasFile     string         `json:"canvas_file"`
	Title          string         `json:"spreadsheet_title"`
	Tab            string         `json:"sheet_title"`
	SpreadsheetID  string         `json:"spreadsheet_id,omitempty"`
	SpreadsheetURL string         `json:"spreadsheet_url,omitempty"`
	AuthState      string         `json:"auth_state"`
	AuthDetail     string         `json:"auth_detail,omitempty"`
	TotalRuns      int            `json:"total_runs"`
	ByStatus       map[string]int `json:"runs_by_status,omitempty"`
	RowsSynced     int            `json:"rows_synced"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
}

func (r statusReport) print() {
	fmt.Printf("%s Canvas Snapshot Synchronizer\n\n", ui.RenderAccent("📊"))

	fmt.Printf("  Config:       %s\n", r.ConfigFile)
	fmt.Printf("  Canvas:       %s\n", r.CanvasFile)
	fmt.Printf("  Target:       %s / %s\n", r.Title, r.Tab)

	if r.SpreadsheetID != "" {
		fmt.Printf("  Spreadsheet:  %s\n", r.SpreadsheetID)
		fmt.Printf("                %s\n", ui.RenderURL(r.SpreadsheetURL))
	} else {
		fmt.Printf("  Spreadsheet:  %s\n", ui.RenderMuted("none yet, first sync creates it"))
	}

	switch r.AuthState {
	case "connected":
		fmt.Printf("  Auth:         %s %s\n", ui.RenderPass("✓ connected"), ui.RenderMuted("("+r.AuthDetail+")"))
	case "disconnected":
		fmt.Printf("  Auth:         %s %s\n", ui.RenderWarn("⚠ not connected"), ui.RenderMuted("("+r.AuthDetail+")"))
	default:
		fmt.Printf("  Auth:         %s %s\n", ui.RenderWarn("⚠ "+r.AuthState), ui.RenderMuted("("+r.AuthDetail+")"))
	}

	fmt.Println()
	if r.TotalRuns == 0 {
		fmt.Printf("  %s\n", ui.RenderMuted("No syncs recorded yet"))
		return
	}
	fmt.Printf("  Runs:         %d total", r.TotalRuns)
	for _, status := range []string{"ok", "skipped", "needs_auth", "error"} {
		if n := r.ByStatus[status]; n > 0 {
			fmt.Printf(", %d %s", n, status)
		}
	}
	fmt.Println()
	fmt.Printf("  Rows synced:  %d\n", r.RowsSynced)
	if r.LastRunAt != nil {
		fmt.Printf("  Last run:     %s\n", r.LastRunAt.Local().Format("2006-01-02 15:04:05"))
	}
}

// openHistoryQuiet opens the history store without exiting on
// failure, for status displays that should survive a missing or
// locked database.
func openHistoryQuiet(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}
	if err := hist.InitSchemaContext(ctx); err != nil {
		hist.Close()
		return nil, err
	}
	return hist, nil
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
