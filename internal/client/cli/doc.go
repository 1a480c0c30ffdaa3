// Package cli provides the interactive UPass command-line client.
//
// It wires configuration, the local session cache, the HTTP API client
// and an interactive REPL. Typical flow: restore a cached session or
// prompt for credentials, then execute vault commands until the user
// exits.
//
// Key features:
//   - Register / Login / Logout against one server at a time
//   - List / Show / Add / Update / Delete credential entries
//   - TOTP code display for entries carrying an authenticator secret
//   - Random password generation
//   - Vault deletion with confirmation
//
// The REPL is started via App.Run(ctx), which blocks until the user
// exits. See App and runREPL for details.
package cli
