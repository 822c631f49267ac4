package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclist/arclist/internal/dashboard"
	"github.com/arclist/arclist/internal/index"
	"github.com/arclist/arclist/internal/remote"
	"github.com/arclist/arclist/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon (foreground)",
	Long: `Run the synchronization daemon in the foreground.

The daemon:
  1. Pulls all collections from the remote into the local cache
  2. Pushes local changes (deferred and on a fixed interval)
  3. Watches the state directory for writes by other processes
  4. Rebuilds the leaderboard index and serves the dashboard feed

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := newLogger(cfg, "[daemon] ")

		st := openStore(cfg, newLogger(cfg, "[store] "))

		client, err := remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			APIKey:  cfg.Remote.APIKey,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating remote client: %v\n", err)
			os.Exit(1)
		}

		ix, err := index.Open(cfg.IndexPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening leaderboard index: %v\n", err)
			os.Exit(1)
		}
		defer ix.Close()

		var board *dashboard.Server
		var notifier sync.Notifier
		if cfg.Dashboard.Enabled {
			board = dashboard.NewServer(&dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: newLogger(cfg, "[dashboard] "),
			})
			if err := board.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer board.Stop()
			notifier = board
		}

		engine, err := sync.New(st, client, &sync.Config{
			PushInterval:     cfg.Sync.PushInterval,
			DebounceInterval: cfg.Sync.DebounceInterval,
			Watch:            true,
			Logger:           newLogger(cfg, "[sync] "),
			Notifier:         notifier,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating sync engine: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if ok := engine.Bootstrap(ctx); !ok {
			logger.Println("Bootstrap finished with stale collections; continuing with local data")
		}
		refreshIndex(ctx, st, ix, board, logger)

		if err := engine.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting sync engine: %v\n", err)
			os.Exit(1)
		}

		// Index refresh is a derived-cache job, independent of pushes.
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		logger.Println("Daemon running")
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				refreshIndex(ctx, st, ix, board, logger)
			}
		}

		logger.Println("Shutting down")
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		engine.Flush(flushCtx)
		cancel()
		engine.Stop()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
