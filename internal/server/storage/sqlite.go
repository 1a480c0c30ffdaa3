package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/upass-project/upass/internal/common"
	sqlitemigrations "github.com/upass-project/upass/internal/server/storage/migrations/sqlite"
)

// SQLiteStore is the default single-node backend: one file, WAL mode,
// schema managed by goose.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies
// pending migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite wal: %w", err)
	}

	goose.SetBaseFS(sqlitemigrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migration: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vaults WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("vault exists: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Get(ctx context.Context, username string) (*Record, error) {
	rec := &Record{Username: username}
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key, blob, updated_at FROM vaults WHERE username = ?`, username).
		Scan(&rec.PublicKey, &rec.Blob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault get: %w", err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vaults (username, public_key, blob, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			public_key = excluded.public_key,
			blob = excluded.blob,
			updated_at = excluded.updated_at
	`, rec.Username, rec.PublicKey, rec.Blob, nowFn().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("vault put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vaults WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("vault delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vault delete: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
