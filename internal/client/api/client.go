// Package api implements the client side of the UPass REST contract.
// Field names and canonical signed messages are load-bearing: they must
// match every other client implementation and the deployed server.
package api

import (
	"context"
	"fmt"

	"github.com/upass-project/upass/internal/common"
)

// Client is the transport consumed by the sync layer. Authenticated
// calls construct a fresh signed request per invocation; nothing is
// persisted.
type Client interface {
	// Health probes GET /health.
	Health(ctx context.Context) error
	// Exists reports whether a vault exists for username (no auth).
	Exists(ctx context.Context, username string) (bool, error)
	// Retrieve fetches the encrypted vault blob.
	Retrieve(ctx context.Context, username string, signingSeed []byte) (string, error)
	// Save uploads the encrypted vault blob. With createIfMissing false
	// the server refuses to resurrect a deleted vault (404).
	Save(ctx context.Context, username string, signingSeed []byte, vaultBlob string, createIfMissing bool) error
	// Delete removes the vault from the server.
	Delete(ctx context.Context, username string, signingSeed []byte) error
	// ServerIdentity returns the canonical identity of the server this
	// client talks to (used as the session cache key).
	ServerIdentity() string
}

// ServerError carries a server-reported failure verbatim: HTTP status,
// the message from the {"error": ...} body, and the taxonomy sentinel
// it maps to. errors.Is matches the sentinel through Unwrap.
type ServerError struct {
	Status  int
	Message string
	Kind    error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Kind }

// mapStatus translates a non-2xx response into the error taxonomy.
func mapStatus(status int, message string) error {
	var kind error
	switch {
	case status == 400:
		kind = common.ErrValidation
	case status == 401:
		kind = common.ErrUnauthorized
	case status == 404:
		kind = common.ErrNotFound
	case status == 409:
		kind = common.ErrConflict
	case status == 429:
		kind = common.ErrRateLimited
	case status >= 500:
		kind = common.ErrServer
	default:
		kind = common.ErrNetwork
	}
	return &ServerError{Status: status, Message: message, Kind: kind}
}
