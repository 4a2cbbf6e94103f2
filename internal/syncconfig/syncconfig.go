// Package syncconfig manages the global sync settings stored at
// ~/.config/mossgrid/config.json. The sync key, device identity and
// checkpoint are per-data-dir state owned by the store, not global config.
package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AutoSyncConfig holds auto-sync settings.
type AutoSyncConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`  // nil = default true
	Interval string `json:"interval,omitempty"` // duration string, default "30s"
	Pull     *bool  `json:"pull,omitempty"`     // nil = default false (interval passes push only)
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL  string         `json:"url"`
	Auto AutoSyncConfig `json:"auto"`
}

// Config is the global mossgrid config.
type Config struct {
	Sync SyncConfig `json:"sync"`
}

const defaultServerURL = "http://localhost:8787"

// ConfigDir returns ~/.config/mossgrid, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "mossgrid")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config, returning defaults when absent.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// ServerURL returns the configured sync server URL or the default.
func (c *Config) ServerURL() string {
	if c.Sync.URL != "" {
		return c.Sync.URL
	}
	return defaultServerURL
}

// AutoEnabled reports whether the auto-sync loop should run.
func (c *Config) AutoEnabled() bool {
	if c.Sync.Auto.Enabled != nil {
		return *c.Sync.Auto.Enabled
	}
	return true
}

// AutoInterval returns the flush interval, defaulting to 30s. Unparseable
// values fall back to the default.
func (c *Config) AutoInterval() time.Duration {
	if c.Sync.Auto.Interval != "" {
		if d, err := time.ParseDuration(c.Sync.Auto.Interval); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// AutoPull reports whether interval passes should pull as well as push.
// Default is push-only: pulls happen on startup and manual sync.
func (c *Config) AutoPull() bool {
	if c.Sync.Auto.Pull != nil {
		return *c.Sync.Auto.Pull
	}
	return false
}
