// Package cryptox implements the cryptographic core of the UPass protocol:
// deterministic key derivation from the master password, authenticated
// vault encryption, and request signing. Every client implementation must
// produce byte-identical results for the same inputs, otherwise vaults
// become unreadable across devices.
package cryptox

import (
	"fmt"

	"github.com/upass-project/upass/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the fixed Argon2id salt length. The salt is the
	// username zero-padded or truncated to this size; it is never
	// random and never issued by the server, so every device can
	// re-derive identical keys without synchronizing state.
	SaltSize = 16

	// KeySize is the length of both derived keys.
	KeySize = 32

	// vaultKeySuffix separates the vault encryption key from the
	// signing key seed. Appending it to the master password is the
	// sole domain-separation mechanism of the scheme.
	vaultKeySuffix = "vault"

	// Argon2id cost parameters. Fixed by the protocol: changing any of
	// them changes every derived key.
	argonPasses  = 4
	argonMemory  = 1024 * 1024 // KiB, ~1 GiB
	argonThreads = 1
)

// DerivedKeys holds the two independent secrets derived from one
// (username, master password) pair. Neither is ever written to durable
// storage in plaintext by this package.
type DerivedKeys struct {
	// SigningSeed keys the per-request HMAC and, hashed, becomes the
	// account's public identity.
	SigningSeed []byte
	// VaultKey encrypts the serialized entry list with AES-256-GCM.
	VaultKey []byte
}

// Wipe zeroes the key material. Call on logout; Go gives no stronger
// guarantee than overwriting the backing arrays.
func (k *DerivedKeys) Wipe() {
	for i := range k.SigningSeed {
		k.SigningSeed[i] = 0
	}
	for i := range k.VaultKey {
		k.VaultKey[i] = 0
	}
	k.SigningSeed = nil
	k.VaultKey = nil
}

// UsernameSalt builds the deterministic Argon2id salt from a username:
// the raw bytes, zero-padded or truncated to SaltSize.
func UsernameSalt(username string) []byte {
	salt := make([]byte, SaltSize)
	copy(salt, username)
	return salt
}

// DeriveKeys derives the signing key seed and the vault encryption key
// from the master password and username. The call is intentionally
// expensive (Argon2id at ~1 GiB memory cost) and must never be retried
// automatically.
//
// Returns common.ErrKeyDerivation if the inputs are rejected or the
// primitive fails.
func DeriveKeys(masterPassword, username string) (keys *DerivedKeys, err error) {
	if masterPassword == "" || username == "" {
		return nil, fmt.Errorf("%w: empty username or password", common.ErrKeyDerivation)
	}

	// argon2 panics rather than returning errors on bad parameters or
	// failed internal allocation.
	defer func() {
		if p := recover(); p != nil {
			keys = nil
			err = fmt.Errorf("%w: %v", common.ErrKeyDerivation, p)
		}
	}()

	salt := UsernameSalt(username)
	seed := argon2.IDKey([]byte(masterPassword), salt, argonPasses, argonMemory, argonThreads, KeySize)
	vaultKey := argon2.IDKey([]byte(masterPassword+vaultKeySuffix), salt, argonPasses, argonMemory, argonThreads, KeySize)

	return &DerivedKeys{SigningSeed: seed, VaultKey: vaultKey}, nil
}
