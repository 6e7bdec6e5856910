// Command sheetsync mirrors a canvas snapshot file into a Google
// Sheets spreadsheet through the Composio tool API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sheetsync/internal/ui"
)

var (
	flagConfig  string
	flagCanvas  string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "sheetsync",
	Short: "Sync a canvas snapshot to Google Sheets",
	Long: `sheetsync mirrors a canvas snapshot file (canvas.json) into a Google
Sheets spreadsheet.

Every sync is a full rewrite: the data tab is cleared and repopulated
from the snapshot, one row per canvas item, so the spreadsheet always
matches the canvas exactly. The target spreadsheet is created on first
use and remembered in a local handle file; deleting it remotely just
makes the next sync create a replacement.

Google Sheets access goes through Composio, so no Google credentials
are stored locally. Run 'sheetsync init' to set up the config file and
'sheetsync auth --connect' to authorize access.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(flagNoColor)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/sheetsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagCanvas, "canvas", "", "Canvas snapshot file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon Commands:"},
		&cobra.Group{ID: "maint", Title: "Maintenance Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
