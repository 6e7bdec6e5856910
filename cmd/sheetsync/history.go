package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"sheetsync/internal/history"
	"sheetsync/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "maint",
	Short:   "Show recorded sync runs",
	Long: `Show recorded sync runs, newest first.

--since accepts natural language ("2 hours ago", "yesterday",
"last monday") as well as dates.

Examples:
  sheetsync history
  sheetsync history --limit 50
  sheetsync history --since "2 hours ago"
  sheetsync history --json`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		sinceStr, _ := cmd.Flags().GetString("since")
		asJSON, _ := cmd.Flags().GetBool("json")

		if limit <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --limit must be positive\n")
			os.Exit(1)
		}

		cfg := mustLoadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hist := openHistory(ctx, cfg)

		var runs []history.Run
		var err error
		if sinceStr != "" {
			since, perr := parseSince(sinceStr)
			if perr != nil {
				hist.Close()
				fmt.Fprintf(os.Stderr, "Error: %v\n", perr)
				os.Exit(1)
			}
			runs, err = hist.ListRunsSince(ctx, since)
		} else {
			runs, err = hist.ListRunsContext(ctx, limit)
		}
		hist.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
			os.Exit(1)
		}

		if asJSON {
			printRunsJSON(runs)
			return
		}
		printRunsTable(runs)
	},
}

// parseSince turns natural language like "2 hours ago" into a time.
func parseSince(s string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q, try something like \"2 hours ago\"", s)
	}
	return r.Time, nil
}

func printRunsTable(runs []history.Run) {
	if len(runs) == 0 {
		fmt.Println(ui.RenderMuted("No syncs recorded"))
		return
	}

	fmt.Printf("%-20s %-11s %6s %10s  %s\n", "TIME", "STATUS", "ROWS", "DURATION", "MESSAGE")
	for _, run := range runs {
		msg := run.Message
		if run.Status == "error" && run.Error != "" {
			msg = run.Error
		}
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		// Pad outside the styling so escape codes don't skew the columns.
		status := ui.RenderStatus(run.Status) + strings.Repeat(" ", max(0, 11-len(run.Status)))
		fmt.Printf("%-20s %s %6d %10s  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			run.RowCount,
			run.Duration.Round(time.Millisecond),
			msg,
		)
	}
	fmt.Printf("\n%d run(s)\n", len(runs))
}

func printRunsJSON(runs []history.Run) {
	type entry struct {
		ID            string    `json:"id"`
		StartedAt     time.Time `json:"started_at"`
		Status        string    `json:"status"`
		RowCount      int       `json:"row_count"`
		SpreadsheetID string    `json:"spreadsheet_id,omitempty"`
		Message       string    `json:"message,omitempty"`
		Error         string    `json:"error,omitempty"`
		DurationMS    int64     `json:"duration_ms"`
	}

	entries := make([]entry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, entry{
			ID:            run.ID,
			StartedAt:     run.StartedAt,
			Status:        run.Status,
			RowCount:      run.RowCount,
			SpreadsheetID: run.SpreadsheetID,
			Message:       run.Message,
			Error:         run.Error,
			DurationMS:    run.Duration.Milliseconds(),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	historyCmd.Flags().String("since", "", "Only show runs after this time (natural language accepted)")
	historyCmd.Flags().Bool("json", false, "Output runs as JSON")
	rootCmd.AddCommand(historyCmd)
}
