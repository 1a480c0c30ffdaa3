package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/upass-project/upass/internal/common"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *sql.DB) {
	t.Helper()
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	return NewStore(db, key, ttl), db
}

func testSession() *Session {
	return &Session{
		Username:          "alice",
		ServerIdentity:    "example.com:443",
		PublicKey:         "cHVibGlj",
		SigningSeed:       []byte{1, 2, 3, 4},
		VaultKey:          []byte{5, 6, 7, 8},
		VaultKnownToExist: true,
	}
}

func atTime(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFn
	nowFn = func() time.Time { return at }
	t.Cleanup(func() { nowFn = orig })
}

func TestStore_CreateValidateRoundTrip(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession()))

	got, err := store.Validate(ctx, "example.com:443")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.SigningSeed)
	assert.Equal(t, []byte{5, 6, 7, 8}, got.VaultKey)
	assert.True(t, got.VaultKnownToExist)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.LastRefreshed.IsZero())
}

func TestStore_MissingSession(t *testing.T) {
	store, _ := setupStore(t, 0)
	_, err := store.Validate(context.Background(), "nowhere:443")
	assert.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestStore_ExpiryPurges(t *testing.T) {
	store, db := setupStore(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	atTime(t, base)
	require.NoError(t, store.Create(ctx, testSession()))

	atTime(t, base.Add(2*time.Hour))
	_, err := store.Validate(ctx, "example.com:443")
	assert.ErrorIs(t, err, common.ErrSessionExpired)

	// The expired row is gone, not just hidden.
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	assert.Zero(t, n)
}

func TestStore_RefreshExtends(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	atTime(t, base)
	require.NoError(t, store.Create(ctx, testSession()))

	atTime(t, base.Add(50*time.Minute))
	require.NoError(t, store.Refresh(ctx, "example.com:443"))

	// 50 + 40 minutes past creation, but only 40 past the refresh.
	atTime(t, base.Add(90*time.Minute))
	got, err := store.Validate(ctx, "example.com:443")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestStore_SetVaultKnownToExist(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession()))
	require.NoError(t, store.SetVaultKnownToExist(ctx, "example.com:443", false))

	got, err := store.Validate(ctx, "example.com:443")
	require.NoError(t, err)
	assert.False(t, got.VaultKnownToExist)
}

func TestStore_ClearAndListAll(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	first := testSession()
	second := testSession()
	second.ServerIdentity = "other.example:443"
	second.Username = "bob"

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	infos, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Info{
		{ServerIdentity: "example.com:443", Username: "alice"},
		{ServerIdentity: "other.example:443", Username: "bob"},
	}, infos)

	require.NoError(t, store.Clear(ctx, "example.com:443"))
	_, err = store.Validate(ctx, "example.com:443")
	assert.ErrorIs(t, err, common.ErrSessionExpired)

	// Clearing twice is fine.
	require.NoError(t, store.Clear(ctx, "example.com:443"))
}

func TestStore_PayloadSealedAtRest(t *testing.T) {
	store, db := setupStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession()))

	var payload string
	require.NoError(t, db.QueryRow(`SELECT payload FROM sessions`).Scan(&payload))
	assert.NotContains(t, payload, "alice")
	assert.NotContains(t, payload, "signing_seed")

	// A store with a different keystore key cannot open the row; the
	// undecryptable session is treated as expired and purged.
	otherKey := make([]byte, 32)
	other := NewStore(db, otherKey, 0)
	_, err := other.Validate(ctx, "example.com:443")
	assert.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestLoadOrCreateKey(t *testing.T) {
	dir := t.TempDir()

	key1, err := LoadOrCreateKey(dir)
	require.NoError(t, err)
	require.Len(t, key1, 32)

	key2, err := LoadOrCreateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	info, err := os.Stat(filepath.Join(dir, keystoreFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
