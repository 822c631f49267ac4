package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/arclist/arclist/internal/dashboard"
	"github.com/arclist/arclist/internal/index"
	"github.com/arclist/arclist/internal/list"
	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and leaderboard status",
	Long: `Display the current state of the local cache: collection sizes,
the top of the leaderboard and the head of the list. Reads only local
data; works offline.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := newLogger(cfg, "[status] ")

		st := openStore(cfg, logger)
		ix, err := index.Open(cfg.IndexPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening leaderboard index: %v\n", err)
			os.Exit(1)
		}
		defer ix.Close()

		ctx := context.Background()
		refreshIndex(ctx, st, ix, nil, logger)

		players, levels, err := ix.Counts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading index: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nCache: %s\n", st.Dir())
		fmt.Printf("Players: %d\n", players)
		fmt.Printf("Published levels: %d\n", levels)
		fmt.Printf("Pending submissions: %d\n", len(st.Submissions()))
		fmt.Printf("Audit entries: %d\n", len(st.AuditLog()))

		top, err := ix.TopPlayers(ctx, 10)
		if err == nil && len(top) > 0 {
			fmt.Println("\nLeaderboard:")
			for _, p := range top {
				fmt.Printf("  #%-3d %-20s %d pts\n", p.Rank, p.Username, p.Points)
			}
		}

		head, err := ix.LevelsByPlacement(ctx)
		if err == nil && len(head) > 0 {
			fmt.Println("\nList:")
			for i, l := range head {
				if i >= 10 {
					fmt.Printf("  ... and %d more\n", len(head)-10)
					break
				}
				fmt.Printf("  #%-3d %s (%s)\n", l.Placement, l.Name, l.Creators)
			}
		}
		fmt.Println()
	},
}

// refreshIndex rebuilds the leaderboard index from the cache and, when
// a dashboard is attached, broadcasts fresh statistics.
func refreshIndex(ctx context.Context, st *store.Store, ix *index.Index, board *dashboard.Server, logger *log.Logger) {
	users := st.Users()
	levels := st.Levels()
	if err := ix.Rebuild(ctx, users, levels); err != nil {
		logger.Printf("WARNING: index rebuild failed: %v", err)
		return
	}
	if board == nil {
		return
	}

	stats := dashboard.StatsData{
		Players:      len(users),
		PendingQueue: len(st.Submissions()),
		AuditEntries: len(st.AuditLog()),
	}
	if ranked := list.Rankings(users); len(ranked) > 0 {
		stats.TopPlayer = ranked[0].User.Username
	}
	for _, l := range levels {
		if l.Status == model.LevelPublished {
			stats.Levels++
			if l.Placement == 1 {
				stats.HardestLevel = l.Name
			}
		}
	}
	board.BroadcastStats(stats)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
