// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the UPass reference server.
//
// Fields:
//   - EndpointAddr: bind address for the public HTTP endpoint.
//   - DatabaseDSN: storage backend selector. "memory", a sqlite file
//     path, a postgres:// DSN (pgx) or "s3" (with the S3* settings).
//   - TimestampTolerance: accepted clock skew for signed requests.
//   - RateDefault / RateRetrieve / RateSave / RateDelete: per-IP
//     request budgets per minute.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddr       string
	DatabaseDSN        string
	TimestampTolerance time.Duration
	RateDefault        int
	RateRetrieve       int
	RateSave           int
	RateDelete         int
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = "upass.db"
	c.TimestampTolerance = 5 * time.Minute
	c.RateDefault = 10
	c.RateRetrieve = 5
	c.RateSave = 3
	c.RateDelete = 1
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "vaults"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
