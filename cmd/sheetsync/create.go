package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sheetsync/internal/canvas"
	"sheetsync/internal/engine"
	"sheetsync/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	GroupID: "sync",
	Args:    cobra.MaximumNArgs(1),
	Short:   "Create a fresh spreadsheet",
	Long: `Create a brand-new spreadsheet and make it the sync target.

The old spreadsheet is abandoned, not deleted: its handle is replaced
by the new one and future syncs write to the new spreadsheet. Without
a title argument the configured spreadsheet title is used.

If a spreadsheet is already being managed you are asked to confirm.
Pass --force to skip the prompt (required when stdin is not a
terminal).

Examples:
  sheetsync create
  sheetsync create "Q3 Board"
  sheetsync create --sync
  sheetsync create --force`,
	Run: func(cmd *cobra.Command, args []string) {
		withSync, _ := cmd.Flags().GetBool("sync")
		force, _ := cmd.Flags().GetBool("force")

		title := ""
		if len(args) > 0 {
			title = args[0]
		}

		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "[create] ", log.LstdFlags)
		st := buildStack(cfg, logger)

		if !force {
			if !confirmReplace(st) {
				fmt.Println("Cancelled")
				os.Exit(1)
			}
		}

		var snap *canvas.Snapshot
		if withSync {
			var err error
			snap, err = canvas.NewFileSource(cfg.CanvasFile).Current(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read canvas: %v\n", err)
				os.Exit(1)
			}
		}

		hist := openHistory(ctx, cfg)
		eng := st.newEngine(cfg, hist, nil, logger)

		result := eng.CreateFresh(ctx, title, snap)
		code := printCreateResult(result)
		hist.Close()
		os.Exit(code)
	},
}

// confirmReplace asks before abandoning an existing spreadsheet.
// Returns true when no handle exists or the user confirmed.
func confirmReplace(st *stack) bool {
	h, err := st.store.Load()
	if err != nil || h == nil {
		return true
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Error: a spreadsheet is already managed (%s). Re-run with --force to replace it.\n", h.SpreadsheetID)
		return false
	}

	replace := false
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Replace managed spreadsheet %s?", h.SpreadsheetID)).
		Description("The old spreadsheet stays in Google Drive, but syncs stop updating it.").
		Value(&replace)
	if err := confirm.Run(); err != nil {
		return false
	}
	return replace
}

func printCreateResult(result engine.SyncResult) int {
	switch result.Status {
	case engine.StatusOK:
		if result.RowCount > 0 {
			fmt.Printf("%s Created spreadsheet and synced %d items\n", ui.RenderPass("✓"), result.RowCount)
		} else {
			fmt.Printf("%s Created spreadsheet\n", ui.RenderPass("✓"))
		}
		fmt.Printf("  %s\n", ui.RenderURL(result.SpreadsheetURL))
		return 0
	default:
		return printSyncResult(result)
	}
}

func init() {
	createCmd.Flags().Bool("sync", false, "Sync the current canvas into the new spreadsheet")
	createCmd.Flags().Bool("force", false, "Replace an existing spreadsheet without confirmation")
	rootCmd.AddCommand(createCmd)
}
