package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/upass-project/upass/internal/flagx"
	"github.com/upass-project/upass/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr       string         `json:"endpoint_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	TimestampTolerance timex.Duration `json:"timestamp_tolerance"`
	RateDefault        int            `json:"rate_default"`
	RateRetrieve       int            `json:"rate_retrieve"`
	RateSave           int            `json:"rate_save"`
	RateDelete         int            `json:"rate_delete"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.EndpointAddr != "" {
		cfg.EndpointAddr = jc.EndpointAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.TimestampTolerance.Duration != 0 {
		cfg.TimestampTolerance = time.Duration(jc.TimestampTolerance.Duration)
	}
	if jc.RateDefault != 0 {
		cfg.RateDefault = jc.RateDefault
	}
	if jc.RateRetrieve != 0 {
		cfg.RateRetrieve = jc.RateRetrieve
	}
	if jc.RateSave != 0 {
		cfg.RateSave = jc.RateSave
	}
	if jc.RateDelete != 0 {
		cfg.RateDelete = jc.RateDelete
	}
	if jc.S3RootUser != "" {
		cfg.S3RootUser = jc.S3RootUser
	}
	if jc.S3RootPassword != "" {
		cfg.S3RootPassword = jc.S3RootPassword
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
}
