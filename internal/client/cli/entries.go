package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/upass-project/upass/internal/totp"
	"github.com/upass-project/upass/internal/vault"
)

// List prints a table of entries: note, username and whether the entry
// carries a TOTP secret. Served from the entry cache when fresh.
func (a *App) List(ctx context.Context) error {
	entries, err := a.svc.GetEntries(ctx, false)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printlnFn("Vault is empty.")
		return nil
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NOTE\tUSERNAME\tTOTP")
	for _, e := range entries {
		hasTOTP := ""
		if e.TOTPSecret != "" {
			hasTOTP = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Note, e.Username, hasTOTP)
	}
	_ = w.Flush()
	printlnFn(strings.TrimRight(b.String(), "\n"))
	return nil
}

// Show prompts for a note and prints the full entry, including the
// current TOTP code when a secret is present.
func (a *App) Show(ctx context.Context) error {
	entries, err := a.svc.GetEntries(ctx, false)
	if err != nil {
		return err
	}

	note, err := getSimpleText(a.reader, "Entry note", os.Stdout)
	if err != nil {
		return err
	}
	e, ok := vault.Find(entries, note)
	if !ok {
		printlnFn("No entry with note:", note)
		return nil
	}

	printlnFn("Note:     " + e.Note)
	printlnFn("Username: " + e.Username)
	printlnFn("Password: " + e.Password)
	if e.TOTPSecret != "" {
		if code, remaining, err := currentCode(e.TOTPSecret); err == nil {
			printlnFn(fmt.Sprintf("TOTP:     %s (%ds left)", code, remaining))
		} else {
			printlnFn("TOTP:     <invalid secret>")
		}
	}
	printlnFn("Created:  " + e.CreatedAt)
	printlnFn("Updated:  " + e.UpdatedAt)
	return nil
}

// Add prompts for the fields of a new entry and uploads the updated
// vault. An empty password prompt offers a generated one. A TOTP secret
// may be pasted as raw base32 or as a full otpauth:// URI.
func (a *App) Add(ctx context.Context) error {
	note, err := getSimpleText(a.reader, "Note (unique name for this entry)", os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getSimpleText(a.reader, "Password (leave empty to generate)", os.Stdout)
	if err != nil {
		return err
	}
	if password == "" {
		password = generatePassword(20, true)
		printlnFn("Generated password:", password)
	}
	secret, err := a.readTOTPSecret()
	if err != nil {
		return err
	}

	if err := a.svc.AddEntry(ctx, vault.NewEntry(note, username, password, secret)); err != nil {
		return err
	}
	printlnFn("Entry added.")
	return nil
}

// Update prompts for the entry to change, then for each field with
// blank meaning keep the current value. The whole vault round-trips.
func (a *App) Update(ctx context.Context) error {
	entries, err := a.svc.GetEntries(ctx, true)
	if err != nil {
		return err
	}

	note, err := getSimpleText(a.reader, "Entry note to update", os.Stdout)
	if err != nil {
		return err
	}
	current, ok := vault.Find(entries, note)
	if !ok {
		printlnFn("No entry with note:", note)
		return nil
	}

	newNote, err := getSimpleText(a.reader, fmt.Sprintf("Note [%s]", current.Note), os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, fmt.Sprintf("Username [%s]", current.Username), os.Stdout)
	if err != nil {
		return err
	}
	password, err := getSimpleText(a.reader, "Password (blank to keep)", os.Stdout)
	if err != nil {
		return err
	}
	secret, err := a.readTOTPSecret()
	if err != nil {
		return err
	}

	updated := current
	if newNote != "" {
		updated.Note = newNote
	}
	if username != "" {
		updated.Username = username
	}
	if password != "" {
		updated.Password = password
	}
	if secret != "" {
		updated.TOTPSecret = secret
	}

	if err := a.svc.UpdateEntry(ctx, note, updated); err != nil {
		return err
	}
	printlnFn("Entry updated.")
	return nil
}

// Delete prompts for a note, confirms, and removes the entry.
func (a *App) Delete(ctx context.Context) error {
	note, err := getSimpleText(a.reader, "Entry note to delete", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := getSimpleText(a.reader, fmt.Sprintf("Delete %q? (yes/no)", note), os.Stdout)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") {
		printlnFn("Cancelled.")
		return nil
	}

	if err := a.svc.DeleteEntry(ctx, note); err != nil {
		return err
	}
	printlnFn("Entry deleted.")
	return nil
}

// readTOTPSecret reads an optional authenticator secret, accepting
// either raw base32 or an otpauth:// URI, and normalizes to the raw
// secret string. The secret is validated before it is stored so a bad
// paste is caught at entry time, not at code time.
func (a *App) readTOTPSecret() (string, error) {
	input, err := getSimpleText(a.reader, "TOTP secret or otpauth:// URI (optional)", os.Stdout)
	if err != nil {
		return "", err
	}
	if input == "" {
		return "", nil
	}
	if strings.HasPrefix(input, "otpauth://") {
		key := totp.ParseURI(input)
		if key == nil {
			return "", fmt.Errorf("unparseable otpauth URI")
		}
		return key.Secret, nil
	}
	if _, err := totp.DecodeSecret(input); err != nil {
		return "", err
	}
	return input, nil
}
