package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheetsync/internal/ui"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	GroupID: "sync",
	Short:   "Check or start the Google Sheets connection",
	Long: `Check whether an active Google Sheets connection exists for the
configured toolkit.

With --connect, a new connection attempt is started and the OAuth URL
is printed. Open the URL in a browser, authorize access, then run
'sheetsync auth' again to confirm the connection is active.

Accounts in other states (INITIATED, EXPIRED, FAILED) do not count as
connected.

Examples:
  sheetsync auth
  sheetsync auth --connect`,
	Run: func(cmd *cobra.Command, args []string) {
		connect, _ := cmd.Flags().GetBool("connect")

		cfg := mustLoadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if connect {
			if err := cfg.ValidateForConnect(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "[auth] ", log.LstdFlags)
		st := buildStack(cfg, logger)

		status, err := st.gate.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if status.Connected {
			fmt.Printf("%s Google Sheets is connected (account %s)\n", ui.RenderPass("✓"), status.AccountID)
			return
		}

		fmt.Printf("%s Google Sheets is not connected\n", ui.RenderWarn("⚠"))
		if !connect {
			fmt.Println("  Run 'sheetsync auth --connect' to start authorization")
			os.Exit(1)
		}

		url, err := st.gate.RemediationURL(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Open this URL to authorize access:\n  %s\n", ui.RenderURL(url))
		fmt.Println("  Then run 'sheetsync auth' to confirm the connection")
	},
}

func init() {
	authCmd.Flags().Bool("connect", false, "Start a connection attempt and print the OAuth URL")
	rootCmd.AddCommand(authCmd)
}
