package cli

import (
	"context"
	"fmt"
	"os"
)

// DeleteVault removes the vault from the server after the user retypes
// their username. The cached session is cleared regardless of which
// device issued the deletion.
func (a *App) DeleteVault(ctx context.Context) error {
	printlnFn("This permanently deletes the vault on the server. There is no undo.")
	confirm, err := getSimpleText(a.reader, fmt.Sprintf("Type your username (%s) to confirm", a.username), os.Stdout)
	if err != nil {
		return err
	}
	if confirm != a.username {
		printlnFn("Cancelled.")
		return nil
	}

	if err := a.svc.DeleteVault(ctx); err != nil {
		return err
	}
	a.username = ""
	printlnFn("Vault deleted.")
	return nil
}

// Sessions lists cached sessions across all servers.
func (a *App) Sessions(ctx context.Context) error {
	infos, err := a.svc.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		printlnFn("No cached sessions.")
		return nil
	}
	for _, info := range infos {
		printlnFn(fmt.Sprintf("%s @ %s", info.Username, info.ServerIdentity))
	}
	return nil
}

// Health probes the bound server.
func (a *App) Health(ctx context.Context) error {
	if err := a.svc.Health(ctx); err != nil {
		return err
	}
	printlnFn("Server is healthy:", a.svc.ServerIdentity())
	return nil
}
