// Package sync orchestrates the vault CRUD protocol: login and
// registration, fetching and saving the encrypted vault, note-keyed
// entry mutations, and vault deletion. It ties together key derivation,
// the vault cipher, request signing and the session cache.
//
// Concurrency: one operation in flight per server identity at a time.
// The surrounding application must not issue concurrent mutating calls
// against the same service; under that assumption the in-memory entry
// cache needs no locking. Failed network calls surface immediately,
// there is no automatic retry, and concurrent saves from two devices
// are last-writer-wins with no version check.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upass-project/upass/internal/client/api"
	"github.com/upass-project/upass/internal/client/session"
	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
	"github.com/upass-project/upass/internal/logging"
	"github.com/upass-project/upass/internal/vault"
)

// EntriesCacheTTL is how long GetEntries serves from memory before
// going back to the server.
const EntriesCacheTTL = 5 * time.Minute

// nowFn is a test seam for the entry-cache clock.
var nowFn = time.Now

// deriveKeys is a test seam: the real derivation runs Argon2id at
// ~1 GiB memory cost.
var deriveKeys = cryptox.DeriveKeys

// maxUsernameLength matches the server's account identifier bound.
const maxUsernameLength = 64

// Service is the sync client for one server. All operations restore the
// cached session for the bound server identity; they never hold derived
// keys beyond the session store.
type Service struct {
	client   api.Client
	sessions *session.Store
	logger   logging.Logger

	entries   []vault.Entry
	entriesAt time.Time
}

// NewService binds a sync service to a transport and a session store.
func NewService(client api.Client, sessions *session.Store, logger logging.Logger) *Service {
	return &Service{client: client, sessions: sessions, logger: logger}
}

// ServerIdentity returns the identity of the bound server.
func (s *Service) ServerIdentity() string {
	return s.client.ServerIdentity()
}

// validateUsername applies the account identifier rules shared with the
// server: non-empty, bounded, alphanumeric.
func validateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLength {
		return fmt.Errorf("%w: username must be 1-%d characters", common.ErrValidation, maxUsernameLength)
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: username must be alphanumeric", common.ErrValidation)
		}
	}
	return nil
}

// Login authenticates against the server: checks the account exists,
// derives keys from the master password, fetches and decrypts the
// vault, and on success creates a session. A decryption failure means
// the master password is wrong; no session is created and no state is
// mutated.
func (s *Service) Login(ctx context.Context, username, masterPassword string) error {
	if err := validateUsername(username); err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: no vault for user %q", common.ErrNotFound, username)
	}

	keys, err := deriveKeys(masterPassword, username)
	if err != nil {
		return err
	}

	blob, err := s.client.Retrieve(ctx, username, keys.SigningSeed)
	if err != nil {
		keys.Wipe()
		// A server that pre-checks the signature namespace rejects the
		// wrong derived identity with 401; that is the same wrong
		// password the decrypt path below would catch.
		if errors.Is(err, common.ErrUnauthorized) {
			return fmt.Errorf("%w: invalid master password", common.ErrAuthenticationFailed)
		}
		return err
	}

	plaintext, err := cryptox.DecryptVault(blob, keys.VaultKey)
	if err != nil {
		keys.Wipe()
		return fmt.Errorf("%w: invalid master password", common.ErrAuthenticationFailed)
	}
	entries, err := vault.Unmarshal(plaintext)
	if err != nil {
		keys.Wipe()
		return fmt.Errorf("%w: invalid master password", common.ErrAuthenticationFailed)
	}

	identity := s.client.ServerIdentity()
	sess := &session.Session{
		Username:          username,
		ServerIdentity:    identity,
		PublicKey:         cryptox.PublicIdentity(keys.SigningSeed),
		SigningSeed:       keys.SigningSeed,
		VaultKey:          keys.VaultKey,
		VaultKnownToExist: true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		keys.Wipe()
		return err
	}

	s.setCache(entries)
	s.logger.Info(ctx, "logged in", "username", username, "server", identity)
	return nil
}

// Register creates a new account: verifies the username is free,
// derives keys, seals an empty vault and saves it (creating the vault
// server-side), then creates a session.
func (s *Service) Register(ctx context.Context, username, masterPassword string) error {
	if err := validateUsername(username); err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: username %q is already taken", common.ErrConflict, username)
	}

	keys, err := deriveKeys(masterPassword, username)
	if err != nil {
		return err
	}

	empty, err := vault.Marshal(nil)
	if err != nil {
		keys.Wipe()
		return err
	}
	blob, err := cryptox.EncryptVault(empty, keys.VaultKey)
	if err != nil {
		keys.Wipe()
		return err
	}

	if err := s.client.Save(ctx, username, keys.SigningSeed, blob, true); err != nil {
		keys.Wipe()
		return err
	}

	identity := s.client.ServerIdentity()
	sess := &session.Session{
		Username:          username,
		ServerIdentity:    identity,
		PublicKey:         cryptox.PublicIdentity(keys.SigningSeed),
		SigningSeed:       keys.SigningSeed,
		VaultKey:          keys.VaultKey,
		VaultKnownToExist: true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		keys.Wipe()
		return err
	}

	s.setCache(nil)
	s.logger.Info(ctx, "registered", "username", username, "server", identity)
	return nil
}

// Session restores the cached session for the bound server, or reports
// common.ErrSessionExpired.
func (s *Service) Session(ctx context.Context) (*session.Session, error) {
	return s.sessions.Validate(ctx, s.client.ServerIdentity())
}

// GetEntries returns the decrypted entry list. Unless forceRefresh is
// set, a result fetched within EntriesCacheTTL is served from memory.
// A not-found response records that the vault no longer exists before
// surfacing the error.
func (s *Service) GetEntries(ctx context.Context, forceRefresh bool) ([]vault.Entry, error) {
	if !forceRefresh && s.entries != nil && nowFn().Sub(s.entriesAt) < EntriesCacheTTL {
		return append([]vault.Entry(nil), s.entries...), nil
	}

	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}

	blob, err := s.client.Retrieve(ctx, sess.Username, sess.SigningSeed)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = s.sessions.SetVaultKnownToExist(ctx, sess.ServerIdentity, false)
		}
		return nil, err
	}

	plaintext, err := cryptox.DecryptVault(blob, sess.VaultKey)
	if err != nil {
		return nil, err
	}
	entries, err := vault.Unmarshal(plaintext)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Refresh(ctx, sess.ServerIdentity); err != nil {
		return nil, err
	}
	if !sess.VaultKnownToExist {
		_ = s.sessions.SetVaultKnownToExist(ctx, sess.ServerIdentity, true)
	}

	s.setCache(entries)
	return append([]vault.Entry(nil), entries...), nil
}

// SaveEntries validates, seals and uploads the full entry list. The PUT
// carries create_if_missing equal to the session's vaultKnownToExist
// flag, so a vault deleted from another device is never silently
// recreated. The local cache and the existence flag are only updated
// after the server confirms the save; a failed save leaves no state
// change behind.
func (s *Service) SaveEntries(ctx context.Context, entries []vault.Entry) error {
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}

	if err := vault.Validate(entries); err != nil {
		return err
	}
	plaintext, err := vault.Marshal(entries)
	if err != nil {
		return err
	}
	blob, err := cryptox.EncryptVault(plaintext, sess.VaultKey)
	if err != nil {
		return err
	}

	err = s.client.Save(ctx, sess.Username, sess.SigningSeed, blob, sess.VaultKnownToExist)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = s.sessions.SetVaultKnownToExist(ctx, sess.ServerIdentity, false)
		}
		return err
	}

	if err := s.sessions.Refresh(ctx, sess.ServerIdentity); err != nil {
		return err
	}
	if !sess.VaultKnownToExist {
		_ = s.sessions.SetVaultKnownToExist(ctx, sess.ServerIdentity, true)
	}

	s.setCache(entries)
	s.logger.Info(ctx, "vault saved", "entries", len(entries))
	return nil
}

// AddEntry appends a new entry via read-modify-write over the full
// list. There is no per-entry server primitive; every mutation
// round-trips the whole vault.
func (s *Service) AddEntry(ctx context.Context, e vault.Entry) error {
	entries, err := s.GetEntries(ctx, true)
	if err != nil {
		return err
	}
	updated, err := vault.Add(entries, e)
	if err != nil {
		return err
	}
	return s.SaveEntries(ctx, updated)
}

// UpdateEntry replaces the entry keyed by note, allowing renames that
// do not collide with another note.
func (s *Service) UpdateEntry(ctx context.Context, note string, e vault.Entry) error {
	entries, err := s.GetEntries(ctx, true)
	if err != nil {
		return err
	}
	updated, err := vault.Update(entries, note, e)
	if err != nil {
		return err
	}
	return s.SaveEntries(ctx, updated)
}

// DeleteEntry removes the entry keyed by note.
func (s *Service) DeleteEntry(ctx context.Context, note string) error {
	entries, err := s.GetEntries(ctx, true)
	if err != nil {
		return err
	}
	updated, err := vault.Remove(entries, note)
	if err != nil {
		return err
	}
	return s.SaveEntries(ctx, updated)
}

// DeleteVault removes the vault from the server, then unconditionally
// clears the local cache and session.
func (s *Service) DeleteVault(ctx context.Context) error {
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}

	if err := s.client.Delete(ctx, sess.Username, sess.SigningSeed); err != nil {
		return err
	}

	s.dropCache()
	if err := s.sessions.Clear(ctx, sess.ServerIdentity); err != nil {
		return err
	}
	s.logger.Info(ctx, "vault deleted", "username", sess.Username)
	return nil
}

// Logout clears the local cache and session without contacting the
// server.
func (s *Service) Logout(ctx context.Context) error {
	s.dropCache()
	return s.sessions.Clear(ctx, s.client.ServerIdentity())
}

// Health probes the server.
func (s *Service) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Sessions lists the cached sessions across all servers.
func (s *Service) Sessions(ctx context.Context) ([]session.Info, error) {
	return s.sessions.ListAll(ctx)
}

func (s *Service) setCache(entries []vault.Entry) {
	s.entries = append([]vault.Entry{}, entries...)
	s.entriesAt = nowFn()
}

func (s *Service) dropCache() {
	s.entries = nil
	s.entriesAt = time.Time{}
}
