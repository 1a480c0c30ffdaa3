package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
	"github.com/upass-project/upass/internal/dbx"
)

// nowFn is a test seam for the session clock.
var nowFn = time.Now

// Store is the session cache service object. It is passed explicitly to
// sync operations; there is no ambient global session state.
type Store struct {
	db  *sql.DB
	key []byte
	ttl time.Duration
}

// NewStore builds a Store over an initialized session database. key is
// the keystore key sealing rows at rest; a non-positive ttl falls back
// to DefaultTTL.
func NewStore(db *sql.DB, key []byte, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, key: key, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) seal(sess *Session) (string, error) {
	plaintext, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("session seal: %w", err)
	}
	return cryptox.EncryptVault(plaintext, s.key)
}

func (s *Store) open(payload string) (*Session, error) {
	plaintext, err := cryptox.DecryptVault(payload, s.key)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	return &sess, nil
}

func (s *Store) put(ctx context.Context, db dbx.DBTX, sess *Session) error {
	payload, err := s.seal(sess)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (server_identity, payload) VALUES (?, ?)
		ON CONFLICT(server_identity) DO UPDATE SET payload = excluded.payload
	`, sess.ServerIdentity, payload)
	if err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

// Create stores a fresh session, stamping CreatedAt and LastRefreshed.
// An existing session for the same server identity is replaced.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	now := nowFn().UTC()
	sess.CreatedAt = now
	sess.LastRefreshed = now
	return s.put(ctx, s.db, sess)
}

// Validate returns the cached session for the server identity if it is
// still within its TTL. Expired sessions are purged and reported as
// common.ErrSessionExpired; a missing session is reported the same way
// so callers need only one re-login path.
func (s *Store) Validate(ctx context.Context, serverIdentity string) (*Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sessions WHERE server_identity = ?`, serverIdentity).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	sess, err := s.open(payload)
	if err != nil {
		// Undecryptable rows (e.g. a rotated keystore key) are purged
		// like expired ones.
		_ = s.Clear(ctx, serverIdentity)
		return nil, common.ErrSessionExpired
	}

	if nowFn().UTC().Sub(sess.LastRefreshed) >= s.ttl {
		_ = s.Clear(ctx, serverIdentity)
		return nil, common.ErrSessionExpired
	}
	return sess, nil
}

// Refresh extends the session after a successful authenticated
// round-trip.
func (s *Store) Refresh(ctx context.Context, serverIdentity string) error {
	return s.mutate(ctx, serverIdentity, func(sess *Session) {
		sess.LastRefreshed = nowFn().UTC()
	})
}

// SetVaultKnownToExist records whether the server is known to hold a
// vault for this session.
func (s *Store) SetVaultKnownToExist(ctx context.Context, serverIdentity string, exists bool) error {
	return s.mutate(ctx, serverIdentity, func(sess *Session) {
		sess.VaultKnownToExist = exists
	})
}

// mutate applies fn to the stored session inside one transaction.
func (s *Store) mutate(ctx context.Context, serverIdentity string, fn func(*Session)) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var payload string
		err := tx.QueryRowContext(ctx,
			`SELECT payload FROM sessions WHERE server_identity = ?`, serverIdentity).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrSessionExpired
		}
		if err != nil {
			return fmt.Errorf("session lookup: %w", err)
		}

		sess, err := s.open(payload)
		if err != nil {
			return err
		}
		fn(sess)
		return s.put(ctx, tx, sess)
	})
}

// Clear removes the cached session for the server identity. Clearing an
// absent session is not an error.
func (s *Store) Clear(ctx context.Context, serverIdentity string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE server_identity = ?`, serverIdentity)
	if err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

// ListAll returns (server identity, username) for every cached session,
// including expired ones; Validate decides liveness.
func (s *Store) ListAll(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM sessions ORDER BY server_identity`)
	if err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("session list: %w", err)
		}
		sess, err := s.open(payload)
		if err != nil {
			continue
		}
		infos = append(infos, Info{ServerIdentity: sess.ServerIdentity, Username: sess.Username})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	return infos, nil
}
