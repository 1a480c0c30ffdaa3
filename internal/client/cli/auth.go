package cli

import (
	"context"
	"os"

	"github.com/upass-project/upass/internal/common"
)

// getSimpleText and friends are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getConfirmedPassword = GetConfirmedPassword

// Register prompts for a username and a confirmed master password and
// creates a new account with an empty vault.
//
// On success it prints a confirmation and leaves the user logged in.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getConfirmedPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.svc.Register(ctx, username, string(password)); err != nil {
		return err
	}

	a.username = username
	printlnFn("Account created. You are logged in.")
	return nil
}

// Login prompts for credentials and authenticates against the server.
// A wrong master password surfaces as a decryption failure; no partial
// state is left behind. The password byte slice is wiped before
// returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter master password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.svc.Login(ctx, username, string(password)); err != nil {
		return err
	}

	a.username = username
	printlnFn("Logged in.")
	return nil
}

// Logout drops the cached session and the in-memory entry cache. The
// server is not contacted.
func (a *App) Logout(ctx context.Context) error {
	if err := a.svc.Logout(ctx); err != nil {
		return err
	}
	a.username = ""
	printlnFn("Logged out.")
	return nil
}
