package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// Request signing.
//
// Every authenticated call carries an HMAC-SHA256 tag over a canonical
// per-operation message, keyed with the signing key seed. The messages
// are fixed concatenations with no delimiters; the server rejects
// timestamps outside its replay window, so the caller must always sign
// with current unix time.

// SignMessage computes the base64 HMAC-SHA256 tag over message.
func SignMessage(message, signingSeed []byte) string {
	mac := hmac.New(sha256.New, signingSeed)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is a valid tag for message
// under signingSeed, in constant time.
func VerifySignature(message, signingSeed []byte, signature string) bool {
	want, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, signingSeed)
	mac.Write(message)
	return hmac.Equal(want, mac.Sum(nil))
}

// PublicIdentity derives the account's public identity from the signing
// key seed: base64(SHA-256(seed)). The server uses it to address the
// account's signature namespace; it is a one-way identity, not an
// asymmetric public key.
func PublicIdentity(signingSeed []byte) string {
	sum := sha256.Sum256(signingSeed)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// RetrieveMessage is the canonical message for a vault fetch.
func RetrieveMessage(timestamp int64) []byte {
	return []byte("get_vault" + strconv.FormatInt(timestamp, 10))
}

// SaveMessage is the canonical message for a vault save.
func SaveMessage(vaultBlob string, timestamp int64) []byte {
	return []byte(vaultBlob + strconv.FormatInt(timestamp, 10))
}

// DeleteMessage is the canonical message for a vault delete.
func DeleteMessage(timestamp int64) []byte {
	return []byte("delete_vault" + strconv.FormatInt(timestamp, 10))
}
