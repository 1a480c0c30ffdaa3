package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/upass-project/upass/internal/common"
	pgmigrations "github.com/upass-project/upass/internal/server/storage/migrations/postgres"
)

// PostgresStore is the multi-node backend, connecting over pgx stdlib.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the DSN and applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	goose.SetBaseFS(pgmigrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres migration: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// newPostgresStoreWithDB is used by tests to inject a mock connection.
func newPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vaults WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vault exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Get(ctx context.Context, username string) (*Record, error) {
	rec := &Record{Username: username}
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key, blob, updated_at FROM vaults WHERE username = $1`, username).
		Scan(&rec.PublicKey, &rec.Blob, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault get: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vaults (username, public_key, blob, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			public_key = EXCLUDED.public_key,
			blob = EXCLUDED.blob,
			updated_at = EXCLUDED.updated_at
	`, rec.Username, rec.PublicKey, rec.Blob, nowFn().UTC())
	if err != nil {
		return fmt.Errorf("vault put: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vaults WHERE username = $1`, username)
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

func (s *PostgresStore) Close() error { return s.db.Close() }
