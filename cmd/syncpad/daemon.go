package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steveyegge/syncpad/internal/daemon"
	"github.com/steveyegge/syncpad/internal/dashboard"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon (foreground)",
	Long: `Run the syncpad daemon in foreground mode.

The daemon:
  1. Watches the inbox directory for drop-in record files and imports them
  2. Runs a sync cycle on the configured interval
  3. Serves the dashboard WebSocket for live sync status

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		logger := log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		if logFile := viper.GetString("daemon.log_file"); logFile != "" {
			logger = daemon.NewFileLogger(logFile)
		}

		orch, _, err := buildEngine(db, logger)
		if err != nil {
			return err
		}

		inboxDir := viper.GetString("daemon.inbox_dir")
		if inboxDir == "" {
			inboxDir = filepath.Join(viper.GetString("data_dir"), "inbox")
		}

		d, err := daemon.NewWithConfig(db, orch, inboxDir, &daemon.Config{
			SyncInterval:     syncInterval(),
			DebounceInterval: daemon.DefaultConfig().DebounceInterval,
			Logger:           logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   viper.GetInt("dashboard.port"),
			Logger: logger,
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		detach := server.AttachOrchestrator(orch)
		defer func() {
			detach()
			if err := server.Stop(); err != nil {
				logger.Printf("Error stopping dashboard: %v", err)
			}
		}()

		fmt.Printf("Watching inbox: %s\n", inboxDir)
		fmt.Printf("Dashboard: http://%s\n", server.GetAddr())
		fmt.Printf("Sync every %v\n", syncInterval())
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Start(ctx)
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture <title>",
	Short: "Drop a quick task into the daemon's inbox",
	Long: `Write a task record into the inbox directory without touching the
database. The running daemon picks it up and stores it. Useful from
scripts and editor bindings where opening the database is too slow.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inboxDir := viper.GetString("daemon.inbox_dir")
		if inboxDir == "" {
			inboxDir = filepath.Join(viper.GetString("data_dir"), "inbox")
		}
		if err := os.MkdirAll(inboxDir, 0o755); err != nil {
			return fmt.Errorf("failed to create inbox: %w", err)
		}

		date, _ := cmd.Flags().GetString("date")
		rec := &daemon.InboxRecord{
			Kind:  daemon.KindTask,
			Title: args[0],
			Date:  date,
		}

		name := fmt.Sprintf("capture-%d", time.Now().UnixNano())
		if err := daemon.WriteInboxFile(inboxDir, name, rec); err != nil {
			return err
		}
		fmt.Printf("Captured: %s\n", args[0])
		return nil
	},
}

func init() {
	captureCmd.Flags().String("date", "", "due date (YYYY-MM-DD)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(captureCmd)
}
