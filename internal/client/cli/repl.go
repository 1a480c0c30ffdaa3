package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Add(ctx context.Context) error
	Update(ctx context.Context) error
	Delete(ctx context.Context) error
	TOTP(ctx context.Context) error
	Generate(ctx context.Context) error
	DeleteVault(ctx context.Context) error
	Logout(ctx context.Context) error
	Sessions(ctx context.Context) error
	Health(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the UPass CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - health         — probe the server
//	  - sessions       — list cached sessions
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - help           — show available commands
//	  - list           — list entries
//	  - show           — show a single entry (interactive note prompt)
//	  - add            — add an entry
//	  - update         — update an entry
//	  - delete         — delete an entry
//	  - totp           — show the current TOTP code for an entry
//	  - generate       — generate a random password
//	  - delete-vault   — delete the whole vault from the server
//	  - logout         — drop the cached session
//	  - exit | quit    — leave the program
//
// Errors returned by command handlers are printed here and the loop
// continues, so one failed command never kills the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("upass %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, show, add, update, delete, totp, generate, delete-vault, logout, health, exit")
			} else {
				printlnFn("Available commands: register, login, health, sessions, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "show":
			err = a.Show(ctx)

		case "add":
			err = a.Add(ctx)

		case "update":
			err = a.Update(ctx)

		case "delete":
			err = a.Delete(ctx)

		case "totp":
			err = a.TOTP(ctx)

		case "generate":
			err = a.Generate(ctx)

		case "delete-vault":
			err = a.DeleteVault(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "sessions":
			err = a.Sessions(ctx)

		case "health":
			err = a.Health(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
