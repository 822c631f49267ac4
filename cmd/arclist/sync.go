package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclist/arclist/internal/remote"
	"github.com/arclist/arclist/internal/sync"
)

var (
	syncPullOnly bool
	syncPushOnly bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot sync with the remote",
	Long: `Pull all collections from the remote into the local cache, then push
the local cache back up. Either direction can be skipped with
--pull-only or --push-only.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := newLogger(cfg, "[sync] ")

		st := openStore(cfg, newLogger(cfg, "[store] "))

		client, err := remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			APIKey:  cfg.Remote.APIKey,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating remote client: %v\n", err)
			os.Exit(1)
		}

		engine, err := sync.New(st, client, &sync.Config{Logger: logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating sync engine: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		ok := true
		if !syncPushOnly {
			if engine.Bootstrap(ctx) {
				fmt.Println("Pull complete")
			} else {
				fmt.Println("Pull incomplete; stale collections kept their local copy")
				ok = false
			}
		}
		if !syncPullOnly {
			if engine.PushAll(ctx) {
				fmt.Println("Push complete")
			} else {
				fmt.Println("Push incomplete; failed collections stay queued locally")
				ok = false
			}
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncPullOnly, "pull-only", false, "only pull remote state")
	syncCmd.Flags().BoolVar(&syncPushOnly, "push-only", false, "only push local state")
	syncCmd.MarkFlagsMutuallyExclusive("pull-only", "push-only")
	rootCmd.AddCommand(syncCmd)
}
