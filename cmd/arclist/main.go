// Command arclist manages the local demon-list cache and its remote
// mirror: seeding, one-shot sync, the background sync daemon and
// status inspection.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arclist/arclist/internal/config"
	"github.com/arclist/arclist/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "arclist",
	Short: "Demon-list cache and sync manager",
	Long: `arclist maintains the local demon-list record cache and mirrors it
to the remote data API.

The local cache is the source of truth for reads and writes; the sync
engine pushes changes opportunistically and pulls remote state at
startup. All commands keep working offline against the local cache.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds a prefixed logger, rotating into the configured log
// file when one is set.
func newLogger(cfg *config.Config, prefix string) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}
	return log.New(out, prefix, log.LstdFlags)
}

// openStore opens the local cache store or exits.
func openStore(cfg *config.Config, logger *log.Logger) *store.Store {
	st, err := store.Open(cfg.StateDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache store: %v\n", err)
		os.Exit(1)
	}
	return st
}
