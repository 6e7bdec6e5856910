package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sheetsync/internal/config"
	"sheetsync/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "maint",
	Short:   "Interactively create the config file",
	Long: `Create the config file through interactive prompts.

Asks for the Composio API key, the auth config id and the sync
targets, then writes them to the config file (default
~/.config/sheetsync/config.yaml). Re-running init pre-fills the
prompts with the current values.

The API key can also live in the COMPOSIO_API_KEY environment
variable instead of the file; leave the prompt empty in that case.

Examples:
  sheetsync init
  sheetsync init --config ./sheetsync.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintf(os.Stderr, "Error: init requires an interactive terminal. Write the config file by hand instead.\n")
			os.Exit(1)
		}

		path := flagConfig
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot locate the user config directory: %v\n", err)
				os.Exit(1)
			}
			path = filepath.Join(dir, "sheetsync", "config.yaml")
		}

		cfg := config.DefaultConfig()
		if _, err := os.Stat(path); err == nil {
			// Pre-fill from the existing config so re-running keeps
			// values.
			loaded, err := config.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			cfg = loaded

			overwrite := false
			confirm := huh.NewConfirm().
				Title(fmt.Sprintf("Overwrite %s?", path)).
				Value(&overwrite)
			if err := confirm.Run(); err != nil || !overwrite {
				fmt.Println("Cancelled")
				os.Exit(1)
			}
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Composio API key").
					Description("From https://app.composio.dev (leave empty to use COMPOSIO_API_KEY)").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.APIKey),
				huh.NewInput().
					Title("Auth config id").
					Description("The Google Sheets auth config (ac_...), needed for 'auth --connect'").
					Value(&cfg.AuthConfigID),
				huh.NewInput().
					Title("Composio user id").
					Value(&cfg.UserID),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Canvas file").
					Description("The snapshot file to sync").
					Value(&cfg.CanvasFile),
				huh.NewInput().
					Title("Spreadsheet title").
					Description("Used when creating the spreadsheet").
					Value(&cfg.SpreadsheetTitle),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("Cancelled")
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := cfg.Write(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		if cfg.APIKey == "" {
			fmt.Printf("%s No API key saved, set COMPOSIO_API_KEY before syncing\n", ui.RenderWarn("⚠"))
		}
		fmt.Println("\nNext steps:")
		fmt.Println("  1. sheetsync auth --connect   # authorize Google Sheets")
		fmt.Println("  2. sheetsync sync             # first sync creates the spreadsheet")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
