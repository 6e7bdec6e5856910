package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheetsync/internal/ingest"
	"sheetsync/internal/ui"
)

var ingestCmd = &cobra.Command{
	Use:     "ingest <file.jsonl>",
	GroupID: "maint",
	Args:    cobra.ExactArgs(1),
	Short:   "Import items from a JSONL file into the canvas",
	Long: `Import canvas items from a JSONL file (one item object per line)
into the canvas snapshot.

By default the snapshot is replaced. With --merge, imported items are
combined with the existing snapshot, imported items winning on id
collisions. Malformed or invalid lines are skipped and reported, not
fatal.

Examples:
  sheetsync ingest export.jsonl
  sheetsync ingest export.jsonl --merge
  sheetsync ingest export.jsonl --dry-run
  sheetsync ingest export.jsonl --backup --title "Imported Board"`,
	Run: func(cmd *cobra.Command, args []string) {
		merge, _ := cmd.Flags().GetBool("merge")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backup, _ := cmd.Flags().GetBool("backup")
		title, _ := cmd.Flags().GetString("title")

		cfg := mustLoadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := ingest.Run(ctx, ingest.Options{
			FromJSONL:  args[0],
			ToSnapshot: cfg.CanvasFile,
			Title:      title,
			Merge:      merge,
			DryRun:     dryRun,
			Backup:     backup,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if dryRun {
			fmt.Printf("%s Dry run: %d items would be imported, %d skipped\n",
				ui.RenderAccent("📊"), result.ItemsImported, result.ItemsSkipped)
		} else {
			fmt.Printf("%s Imported %d items into %s (%d total)\n",
				ui.RenderPass("✓"), result.ItemsImported, cfg.CanvasFile, result.TotalItems)
		}
		if result.BackupCreated != "" {
			fmt.Printf("  Backup: %s\n", result.BackupCreated)
		}
		for _, line := range result.Errors {
			fmt.Printf("  %s %s\n", ui.RenderWarn("⚠ skipped:"), line)
		}
		if !dryRun && result.ItemsImported > 0 {
			fmt.Println("  Run 'sheetsync sync' to push the imported items")
		}
	},
}

func init() {
	ingestCmd.Flags().Bool("merge", false, "Merge into the existing snapshot instead of replacing it")
	ingestCmd.Flags().Bool("dry-run", false, "Parse and report without writing the snapshot")
	ingestCmd.Flags().Bool("backup", false, "Back up the existing snapshot first")
	ingestCmd.Flags().String("title", "", "Set the snapshot's global title")
	rootCmd.AddCommand(ingestCmd)
}
