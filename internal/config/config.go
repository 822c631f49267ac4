// Package config loads the application configuration.
//
// Configuration comes from a YAML file plus ARCLIST_* environment
// overrides (ARCLIST_REMOTE_BASE_URL, ARCLIST_REMOTE_API_KEY and so
// on). The remote address and credential are static, required
// configuration; there are no ambient defaults for them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	// StateDir holds the local cache files.
	StateDir string `mapstructure:"state_dir"`

	// IndexPath is the SQLite leaderboard index location.
	IndexPath string `mapstructure:"index_path"`

	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Session   SessionConfig   `mapstructure:"session"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// RemoteConfig identifies the remote data API.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// SyncConfig tunes the synchronization engine.
type SyncConfig struct {
	PushInterval     time.Duration `mapstructure:"push_interval"`
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
}

// SessionConfig tunes the session manager.
type SessionConfig struct {
	IdleLimit time.Duration `mapstructure:"idle_limit"`
}

// DashboardConfig tunes the WebSocket dashboard.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LogConfig controls daemon log output. An empty File logs to stderr.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads configuration from path (optional; empty means defaults +
// environment only) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("state_dir", ".arclist/state")
	v.SetDefault("index_path", ".arclist/index.db")
	// Registering the remote keys (even as empty) is what lets
	// AutomaticEnv feed them into Unmarshal without a config file.
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("sync.push_interval", 2*time.Minute)
	v.SetDefault("sync.debounce_interval", 250*time.Millisecond)
	v.SetDefault("session.idle_limit", 24*time.Hour)
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetEnvPrefix("ARCLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required (or ARCLIST_REMOTE_BASE_URL)")
	}
	if c.Remote.APIKey == "" {
		return fmt.Errorf("remote.api_key is required (or ARCLIST_REMOTE_API_KEY)")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir cannot be empty")
	}
	return nil
}
