package storage

import (
	"context"
	"strings"

	"github.com/upass-project/upass/internal/server/config"
)

// Open selects a backend from the configured DSN:
//
//   - "memory"                  → in-memory store
//   - "s3"                      → S3-compatible object store
//   - "postgres://", "postgresql://" → PostgreSQL
//   - anything else             → sqlite file path
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	dsn := cfg.DatabaseDSN
	switch {
	case dsn == "memory":
		return NewMemoryStore(), nil
	case dsn == "s3":
		return NewS3Store(ctx, S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	default:
		return NewSQLiteStore(ctx, dsn)
	}
}
