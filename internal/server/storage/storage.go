// Package storage persists one encrypted vault blob per username. The
// server never inspects blob contents; a record is the blob plus the
// public key that owns it.
package storage

import (
	"context"
	"time"
)

// Record is one stored vault.
type Record struct {
	Username  string
	PublicKey string
	Blob      string
	UpdatedAt time.Time
}

// Store is the persistence interface shared by all backends. Get and
// Delete report common.ErrNotFound for absent vaults; Put upserts.
type Store interface {
	Exists(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, username string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, username string) error
	Close() error
}

// nowFn is a test seam for record timestamps.
var nowFn = time.Now
