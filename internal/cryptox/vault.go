package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/upass-project/upass/internal/common"
)

const (
	// gcmIVSize is the GCM nonce length in bytes (96 bits).
	gcmIVSize = 12
	// gcmTagSize is the GCM authentication tag length in bytes (128 bits).
	gcmTagSize = 16
)

// EncryptVault seals the serialized entry list with AES-256-GCM and a
// fresh random 96-bit IV, returning the wire blob: base64(IV||ciphertext||tag).
// The IV is drawn from the CSPRNG on every call; an IV is never reused
// under the same key.
func EncryptVault(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("vault encrypt: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault encrypt: %w", err)
	}

	iv := common.GenerateRandByteArray(gcmIVSize)
	sealed := aesgcm.Seal(iv, iv, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptVault opens a wire blob produced by EncryptVault.
//
// Any failure (malformed base64, truncated data, tag mismatch, wrong
// key) returns common.ErrAuthenticationFailed. The protocol has no
// separate password-verification step: this error is the only signal
// that a supplied master password is wrong.
func DecryptVault(blob string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed vault blob", common.ErrAuthenticationFailed)
	}
	if len(raw) < gcmIVSize+gcmTagSize {
		return nil, fmt.Errorf("%w: vault blob too short", common.ErrAuthenticationFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthenticationFailed, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthenticationFailed, err)
	}

	plaintext, err := aesgcm.Open(nil, raw[:gcmIVSize], raw[gcmIVSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: vault decryption failed", common.ErrAuthenticationFailed)
	}
	return plaintext, nil
}
