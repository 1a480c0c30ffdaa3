// Package session caches derived keys and sync metadata per server
// identity so that a user does not pay the Argon2id derivation cost on
// every CLI invocation. Sessions are sealed with AES-256-GCM under a
// per-host keystore key before touching disk; plaintext key material is
// never written to durable storage.
package session

import "time"

// DefaultTTL is how long a session stays valid without a refresh.
const DefaultTTL = 7 * 24 * time.Hour

// Session is the cached state for one server identity. Sessions are
// independent: two cached servers never share key material.
type Session struct {
	Username       string `json:"username"`
	ServerIdentity string `json:"server_identity"`
	PublicKey      string `json:"public_key"`
	SigningSeed    []byte `json:"signing_seed"`
	VaultKey       []byte `json:"vault_key"`

	CreatedAt     time.Time `json:"created_at"`
	LastRefreshed time.Time `json:"last_refreshed"`

	// VaultKnownToExist guards saves: while false, the client sends
	// create_if_missing=false so a PUT cannot resurrect a vault that
	// was deleted from another device.
	VaultKnownToExist bool `json:"vault_known_to_exist"`
}

// Info is the listing projection of a cached session.
type Info struct {
	ServerIdentity string
	Username       string
}
