package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"sheetsync/internal/composio"
	"sheetsync/internal/config"
	"sheetsync/internal/engine"
	"sheetsync/internal/handle"
	"sheetsync/internal/history"
	"sheetsync/internal/sheet"
	"sheetsync/internal/ui"
)

// mustLoadConfig loads the config file and applies global flag
// overrides, exiting on malformed input.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flagCanvas != "" {
		cfg.CanvasFile = flagCanvas
	}
	return cfg
}

// stack bundles the remote-facing pieces every sync command needs:
// the Composio client, the sheet service on top of it, the handle
// store and the two engine collaborators built from them.
type stack struct {
	client  *composio.Client
	sheets  *sheet.Service
	store   *handle.FileStore
	gate    *engine.AuthGate
	locator *engine.ResourceLocator
}

func buildStack(cfg *config.Config, logger *log.Logger) *stack {
	client := composio.New(composio.Config{
		APIKey:  cfg.APIKey,
		UserID:  cfg.UserID,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	})
	sheets := sheet.NewService(client, logger)
	store := handle.NewFileStore(cfg.HandlePath())
	return &stack{
		client:  client,
		sheets:  sheets,
		store:   store,
		gate:    engine.NewAuthGate(client, cfg.Toolkit, cfg.AuthConfigID, logger),
		locator: engine.NewResourceLocator(store, sheets, cfg.SpreadsheetTitle, cfg.SheetTitle, logger),
	}
}

// newEngine assembles the sync engine on top of the stack. Recorder
// and notifier may be nil.
func (s *stack) newEngine(cfg *config.Config, recorder engine.Recorder, notifier engine.Notifier, logger *log.Logger) *engine.Engine {
	return engine.New(engine.Config{
		Gate:     s.gate,
		Locator:  s.locator,
		Sheets:   s.sheets,
		Tab:      cfg.SheetTitle,
		Recorder: recorder,
		Notifier: notifier,
		Logger:   logger,
	})
}

// openHistory opens the sync history database, creating its parent
// directory and schema as needed. Exits on failure; history is not
// optional for the commands that ask for it.
func openHistory(ctx context.Context, cfg *config.Config) *history.Store {
	path := cfg.HistoryPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}
	}
	hist, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open history database: %v\n", err)
		os.Exit(1)
	}
	if err := hist.InitSchemaContext(ctx); err != nil {
		hist.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to initialize history schema: %v\n", err)
		os.Exit(1)
	}
	return hist
}

// printSyncResult renders one sync outcome to the terminal and
// returns the process exit code for it.
func printSyncResult(result engine.SyncResult) int {
	switch result.Status {
	case engine.StatusOK:
		fmt.Printf("%s Synced %d items in %s\n", ui.RenderPass("✓"), result.RowCount, result.Duration.Round(time.Millisecond))
		if result.SpreadsheetURL != "" {
			fmt.Printf("  %s\n", ui.RenderURL(result.SpreadsheetURL))
		}
		return 0
	case engine.StatusSkipped:
		fmt.Printf("%s Canvas unchanged, nothing to sync\n", ui.RenderMuted("·"))
		return 0
	case engine.StatusNeedsAuth:
		fmt.Printf("%s Google Sheets is not connected\n", ui.RenderWarn("⚠"))
		if result.AuthURL != "" {
			fmt.Printf("  Open this URL to authorize access:\n  %s\n", ui.RenderURL(result.AuthURL))
		} else {
			fmt.Println("  Run 'sheetsync auth --connect' to start authorization")
		}
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", result.Err)
		return 1
	}
}
