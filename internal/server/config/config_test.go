package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, "upass.db", c.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, c.TimestampTolerance)
	assert.Equal(t, 10, c.RateDefault)
	assert.Equal(t, 5, c.RateRetrieve)
	assert.Equal(t, 3, c.RateSave)
	assert.Equal(t, 1, c.RateDelete)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	os.Args = []string{"cmd", "-a", ":9090", "-d", "postgres://u:p@db/upass"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "postgres://u:p@db/upass", cfg.DatabaseDSN)
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	data, err := json.Marshal(map[string]any{
		"endpoint_addr":       ":7070",
		"database_dsn":        "memory",
		"timestamp_tolerance": "2m",
		"rate_save":           6,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, "memory", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Minute, cfg.TimestampTolerance)
	assert.Equal(t, 6, cfg.RateSave)
	// Unset fields keep their defaults.
	assert.Equal(t, 5, cfg.RateRetrieve)
}
