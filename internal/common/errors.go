// Package common defines shared constants and sentinel errors used across
// client and server layers of UPass. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Local input-constraint violations. Checked before any network call.
	ErrValidation = errors.New("validation error")

	// Key derivation primitive failure (allocation or rejected input).
	// Derivation is never retried automatically.
	ErrKeyDerivation = errors.New("key derivation error")

	// AEAD open failure: tag mismatch, malformed blob, or wrong key.
	// The protocol has no separate password check, so this doubles as
	// the wrong-master-password signal.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Account or vault absent on the server.
	ErrNotFound = errors.New("not found")

	// Conflicting state on the server (e.g. username already taken).
	ErrConflict = errors.New("conflict")

	// Server throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// Server-side failure (5xx).
	ErrServer = errors.New("server error")

	// Transport-level failure before an HTTP status was obtained.
	ErrNetwork = errors.New("network error")

	// Request rejected as unauthorized by the server (bad signature,
	// stale timestamp, or public key mismatch).
	ErrUnauthorized = errors.New("unauthorized")

	// Session-cache specific: no valid session for the server identity.
	ErrSessionExpired = errors.New("session expired")
)
