package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheetsync/internal/canvas"
	"sheetsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push the canvas snapshot to Google Sheets",
	Long: `Push the current canvas snapshot to the managed spreadsheet.

Every sync is a full rewrite: the data tab is cleared and repopulated
with a header row plus one row per canvas item, so the spreadsheet
always matches the canvas exactly. On first use the spreadsheet is
created and remembered in the handle file; if it was deleted remotely
a replacement is created automatically.

A missing canvas file syncs as an empty canvas, which clears the data
tab down to the header row.

Examples:
  sheetsync sync
  sheetsync sync --canvas board.json`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := os.Stat(cfg.CanvasFile); os.IsNotExist(err) {
			fmt.Printf("%s Canvas file %s does not exist, syncing an empty canvas\n", ui.RenderWarn("⚠"), cfg.CanvasFile)
		}
		snap, err := canvas.NewFileSource(cfg.CanvasFile).Current(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read canvas: %v\n", err)
			os.Exit(1)
		}

		logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)
		st := buildStack(cfg, logger)

		hist := openHistory(ctx, cfg)
		eng := st.newEngine(cfg, hist, nil, logger)

		result := eng.Sync(ctx, snap)
		code := printSyncResult(result)
		hist.Close()
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
