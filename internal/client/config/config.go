package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the UPass CLI.
//
// Fields:
//   - ServerURL: base URL of the vault server (http or https).
//   - DataDir: directory for the session database and keystore.
//   - RequestTimeout: per-request HTTP timeout.
//   - SessionTTL: how long a cached session stays valid.
//
// Units: RequestTimeout and SessionTTL are time.Duration values.
type Config struct {
	ServerURL      string
	DataDir        string
	RequestTimeout time.Duration
	SessionTTL     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 30 * time.Second
	c.SessionTTL = 7 * 24 * time.Hour
}

// defaultDataDir resolves the per-user application directory, falling
// back to a dotted directory under $HOME when the platform dir is
// unavailable.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "upass")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".upass"
	}
	return filepath.Join(home, ".upass")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
