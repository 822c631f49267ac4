package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arclist/arclist/internal/list"
)

var seedFixture string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the local cache with initial data",
	Long: `Initialize an empty cache with a head-admin account and two sample
levels. With --fixture, additionally load users and levels from a YAML
file; duplicates are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := newLogger(cfg, "[seed] ")

		st := openStore(cfg, newLogger(cfg, "[store] "))
		svc := list.New(st, logger)

		if svc.Seed() {
			fmt.Println("Seeded empty cache: admin account and 2 sample levels")
		} else {
			fmt.Println("Cache already has users; base seed skipped")
		}

		if seedFixture != "" {
			if err := svc.SeedFromFile(seedFixture); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading fixture: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Loaded fixture %s\n", seedFixture)
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFixture, "fixture", "", "YAML fixture with users and levels")
	rootCmd.AddCommand(seedCmd)
}
