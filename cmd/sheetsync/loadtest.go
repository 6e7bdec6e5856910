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

	"sheetsync/internal/loadtest"
)

var loadtestCmd = &cobra.Command{
	Use:     "loadtest",
	GroupID: "maint",
	Short:   "Run a concurrent sync load test against a stub backend",
	Long: `Run concurrent sync workers against an in-memory Google Sheets stub
and report latency statistics.

No network calls are made and no configuration is needed: each worker
gets its own engine and spreadsheet, all backed by the same stub, so
the run measures the sync pipeline itself (snapshot validation, row
mapping, change detection, call sequencing) under concurrency.

Examples:
  # Default: 10 workers, 20 syncs each, 50 items per canvas
  sheetsync loadtest

  # Heavier run with simulated per-call latency
  sheetsync loadtest --workers 100 --syncs 10 --latency 5ms

  # Output statistics as JSON
  sheetsync loadtest --json
`,
	Run:  runLoadtest,
	Args: cobra.NoArgs,
}

func init() {
	loadtestCmd.Flags().Int("workers", 10, "Number of concurrent sync workers")
	loadtestCmd.Flags().Int("syncs", 20, "Syncs per worker")
	loadtestCmd.Flags().Int("items", 50, "Canvas items per worker")
	loadtestCmd.Flags().Duration("latency", 0, "Simulated latency per stub call")
	loadtestCmd.Flags().Int64("seed", 42, "Random seed for snapshot generation")
	loadtestCmd.Flags().Bool("json", false, "Output results as JSON")
	loadtestCmd.Flags().Bool("verbose", false, "Log individual sync activity")
	rootCmd.AddCommand(loadtestCmd)
}

func runLoadtest(cmd *cobra.Command, args []string) {
	workers, _ := cmd.Flags().GetInt("workers")
	syncs, _ := cmd.Flags().GetInt("syncs")
	items, _ := cmd.Flags().GetInt("items")
	latency, _ := cmd.Flags().GetDuration("latency")
	seed, _ := cmd.Flags().GetInt64("seed")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Validate flags
	if workers <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --workers must be positive\n")
		os.Exit(1)
	}
	if syncs <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --syncs must be positive\n")
		os.Exit(1)
	}
	if items <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --items must be positive\n")
		os.Exit(1)
	}
	if latency < 0 {
		fmt.Fprintf(os.Stderr, "Error: --latency must not be negative\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := loadtest.Config{
		Items:       items,
		CallLatency: latency,
		Seed:        seed,
	}
	if verbose {
		config.Logger = log.New(os.Stderr, "[loadtest] ", log.LstdFlags)
	}

	if !jsonOutput {
		fmt.Println("Running sync load test...")
		fmt.Printf("Configuration: %d workers, %d syncs/worker, %d items, %s/call\n\n",
			workers, syncs, items, latency)
	}

	harness := loadtest.NewHarness(config)

	start := time.Now()
	stats, err := harness.RunConcurrentSyncs(ctx, workers, syncs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	if jsonOutput {
		outputLoadtestJSON(stats, harness, workers, syncs, items, elapsed)
	} else {
		fmt.Println(stats.Report())
		fmt.Printf("\nTotal duration:  %s\n", elapsed.Round(time.Millisecond))
		fmt.Printf("Syncs/second:    %.1f\n", float64(stats.TotalSyncs)/elapsed.Seconds())
		fmt.Printf("Spreadsheets:    %d\n", harness.Sheets.SheetCount())
		fmt.Printf("Stub calls:      %d create, %d ensure_tab, %d clear, %d append\n",
			harness.Sheets.CallCount("create"),
			harness.Sheets.CallCount("ensure_tab"),
			harness.Sheets.CallCount("clear"),
			harness.Sheets.CallCount("append"))
	}

	if stats.Errors > 0 {
		fmt.Fprintf(os.Stderr, "WARNING: %d syncs failed\n", stats.Errors)
		os.Exit(1)
	}
}

func outputLoadtestJSON(stats *loadtest.LatencyStats, harness *loadtest.Harness, workers, syncs, items int, elapsed time.Duration) {
	output := map[string]interface{}{
		"config": map[string]interface{}{
			"workers": workers,
			"syncs":   syncs,
			"items":   items,
		},
		"latency": map[string]interface{}{
			"min_us":  stats.Min.Microseconds(),
			"p50_us":  stats.P50.Microseconds(),
			"mean_us": stats.Mean.Microseconds(),
			"p95_us":  stats.P95.Microseconds(),
			"p99_us":  stats.P99.Microseconds(),
			"max_us":  stats.Max.Microseconds(),
		},
		"throughput": map[string]interface{}{
			"syncs_per_second": float64(stats.TotalSyncs) / elapsed.Seconds(),
			"total_syncs":      stats.TotalSyncs,
		},
		"stub": map[string]interface{}{
			"spreadsheets": harness.Sheets.SheetCount(),
			"rows":         harness.Sheets.TotalRows(),
			"create":       harness.Sheets.CallCount("create"),
			"ensure_tab":   harness.Sheets.CallCount("ensure_tab"),
			"clear":        harness.Sheets.CallCount("clear"),
			"append":       harness.Sheets.CallCount("append"),
		},
		"duration_ms": elapsed.Milliseconds(),
		"errors":      stats.Errors,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
