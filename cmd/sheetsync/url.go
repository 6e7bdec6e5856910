package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sheetsync/internal/handle"
	"sheetsync/internal/sheet"
)

var urlCmd = &cobra.Command{
	Use:     "url",
	GroupID: "sync",
	Short:   "Print the URL of the managed spreadsheet",
	Long: `Print the browser URL of the managed spreadsheet.

The URL is derived from the locally persisted handle, so this works
offline and without an API key. If the spreadsheet was deleted
remotely the URL may point at nothing until the next sync recreates
it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		store := handle.NewFileStore(cfg.HandlePath())
		h, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load handle: %v\n", err)
			os.Exit(1)
		}
		if h == nil {
			fmt.Fprintln(os.Stderr, "Error: no spreadsheet yet. Run 'sheetsync sync' to create one.")
			os.Exit(1)
		}

		// The URL is string formatting; no tool runner is needed.
		sheets := sheet.NewService(nil, nil)
		fmt.Println(sheets.URL(h.SpreadsheetID))
	},
}

func init() {
	rootCmd.AddCommand(urlCmd)
}
