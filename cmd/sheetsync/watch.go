package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"sheetsync/internal/canvas"
	"sheetsync/internal/daemon"
	"sheetsync/internal/dashboard"
	"sheetsync/internal/engine"
	"sheetsync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "daemon",
	Short:   "Watch the canvas file and sync on change",
	Long: `Run the sync daemon: watch the canvas file and push every change
to the spreadsheet.

The daemon:

1. Performs an initial sync on startup
2. Watches the canvas file for changes (fsnotify, or stat polling
   with --poll for network mounts)
3. Debounces rapid editor writes into a single sync
4. Resyncs periodically to repair drift from missed events or manual
   spreadsheet edits

With --dashboard, a local web dashboard serves live sync activity
over WebSocket and a manual sync button.

Flags override the watch section of the config file.

Examples:
  sheetsync watch
  sheetsync watch --debounce 5s --interval 10m
  sheetsync watch --poll --poll-interval 1s
  sheetsync watch --dashboard --port 9090
  sheetsync watch --log-file /var/log/sheetsync.log`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Flags win over the config file, which won over defaults.
		if cmd.Flags().Changed("debounce") {
			cfg.Watch.Debounce, _ = cmd.Flags().GetDuration("debounce")
		}
		if cmd.Flags().Changed("interval") {
			cfg.Watch.Interval, _ = cmd.Flags().GetDuration("interval")
		}
		if cmd.Flags().Changed("poll") {
			cfg.Watch.Poll, _ = cmd.Flags().GetBool("poll")
		}
		if cmd.Flags().Changed("poll-interval") {
			cfg.Watch.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile, _ = cmd.Flags().GetString("log-file")
		}
		if cmd.Flags().Changed("port") {
			cfg.DashboardPort, _ = cmd.Flags().GetInt("port")
		}
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		if cfg.Watch.Debounce <= 0 || cfg.Watch.Interval <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --debounce and --interval must be positive\n")
			os.Exit(1)
		}
		if cfg.Watch.Poll && cfg.Watch.PollInterval <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --poll-interval must be positive\n")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logWriter := newLogWriter(cfg.LogFile)

		hist := openHistory(ctx, cfg)
		defer hist.Close()

		st := buildStack(cfg, log.New(logWriter, "[sheets] ", log.LstdFlags))

		var server *dashboard.Server
		var notifier engine.Notifier
		if withDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Port:    cfg.DashboardPort,
				History: hist,
				Logger:  log.New(logWriter, "[dashboard] ", log.LstdFlags),
			})
			notifier = dashboard.NewHandler(server, log.New(logWriter, "[dashboard] ", log.LstdFlags))
		}

		eng := st.newEngine(cfg, hist, notifier, log.New(logWriter, "[engine] ", log.LstdFlags))

		d, err := daemon.New(eng, canvas.NewFileSource(cfg.CanvasFile), &daemon.Config{
			CanvasPath:       cfg.CanvasFile,
			DebounceInterval: cfg.Watch.Debounce,
			ResyncInterval:   cfg.Watch.Interval,
			UsePolling:       cfg.Watch.Poll,
			PollInterval:     cfg.Watch.PollInterval,
			Logger:           log.New(logWriter, "[daemon] ", log.LstdFlags),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create daemon: %v\n", err)
			os.Exit(1)
		}

		if server != nil {
			server.SetController(eng)
			server.SetTrigger(d.TriggerSync)
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
				os.Exit(1)
			}
			defer server.Stop()
			fmt.Printf("%s Dashboard: http://localhost:%d\n", ui.RenderAccent("📊"), cfg.DashboardPort)
		}

		fmt.Printf("%s Watching %s (Ctrl+C to stop)\n", ui.RenderPass("✓"), cfg.CanvasFile)

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: daemon failed: %v\n", err)
			os.Exit(1)
		}
	},
}

// newLogWriter returns stderr, teed into a size-rotated log file when
// one is configured.
func newLogWriter(logFile string) io.Writer {
	if logFile == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	})
}

func init() {
	watchCmd.Flags().Duration("debounce", 0, "Wait this long after the last file event before syncing")
	watchCmd.Flags().Duration("interval", 0, "Periodic resync interval")
	watchCmd.Flags().Bool("poll", false, "Poll the file instead of using OS notifications")
	watchCmd.Flags().Duration("poll-interval", 0, "Poll frequency when --poll is set")
	watchCmd.Flags().Bool("dashboard", false, "Serve the web dashboard while watching")
	watchCmd.Flags().IntP("port", "p", 8080, "Dashboard port")
	watchCmd.Flags().String("log-file", "", "Also write logs to this file, with rotation")
	rootCmd.AddCommand(watchCmd)
}
