package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sheetsync/internal/canvas"
	"sheetsync/internal/dashboard"
	"sheetsync/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "daemon",
	Short:   "Serve the web dashboard without watching",
	Long: `Serve the web dashboard on its own, without watching the canvas file.

The dashboard shows connection status, the sync history and live sync
results over WebSocket. Its sync button runs a one-shot sync of the
current canvas file.

WebSocket messages include:
- sync_result: a sync finished, with status, row count and URL
- auth_status: connection state changed or authorization is required
- stats: history totals (runs by status, rows synced)

Use 'sheetsync watch --dashboard' to combine the dashboard with file
watching.

Examples:
  sheetsync serve                # Serve on default port 8080
  sheetsync serve --port 9000`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")

		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("port") {
			cfg.DashboardPort = port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "[dashboard] ", log.LstdFlags)

		hist := openHistory(ctx, cfg)
		defer hist.Close()

		st := buildStack(cfg, log.New(os.Stderr, "[sheets] ", log.LstdFlags))

		server := dashboard.NewServer(&dashboard.Config{
			Port:    cfg.DashboardPort,
			History: hist,
			Logger:  logger,
		})
		handler := dashboard.NewHandler(server, logger)
		eng := st.newEngine(cfg, hist, handler, log.New(os.Stderr, "[engine] ", log.LstdFlags))

		fac := engine.NewFacade(canvas.NewFileSource(cfg.CanvasFile), eng)
		server.SetController(eng)
		server.SetTrigger(func() {
			// The sync button syncs whatever is in the canvas file now.
			go func() {
				syncCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				defer cancel()
				logger.Printf("triggered sync: %s", fac.Sync(syncCtx))
			}()
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", cfg.DashboardPort)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", cfg.DashboardPort)
		fmt.Printf("Health check: http://localhost:%d/health\n", cfg.DashboardPort)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
