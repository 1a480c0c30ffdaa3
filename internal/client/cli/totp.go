package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/upass-project/upass/internal/cryptox"
	"github.com/upass-project/upass/internal/totp"
	"github.com/upass-project/upass/internal/vault"
)

// generatePassword is a test seam for the random password generator.
var generatePassword = cryptox.GeneratePassword

// nowFn is a test seam for the TOTP clock.
var nowFn = time.Now

// currentCode computes the current TOTP code for a stored secret and
// the seconds until it rolls over.
func currentCode(secret string) (string, int, error) {
	p := totp.DefaultParams()
	code, err := totp.Generate(secret, nowFn(), p)
	if err != nil {
		return "", 0, err
	}
	return totp.FormatCode(code), totp.RemainingSeconds(nowFn(), p.Period), nil
}

// TOTP prompts for a note and prints the current code for that entry.
func (a *App) TOTP(ctx context.Context) error {
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
	if e.TOTPSecret == "" {
		printlnFn("Entry has no TOTP secret.")
		return nil
	}

	code, remaining, err := currentCode(e.TOTPSecret)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%s (%ds left)", code, remaining))
	return nil
}

// Generate prompts for a length and character set and prints a random
// password. Nothing is stored.
func (a *App) Generate(ctx context.Context) error {
	lengthText, err := getSimpleText(a.reader, "Length [20]", os.Stdout)
	if err != nil {
		return err
	}
	length := 20
	if lengthText != "" {
		length, err = strconv.Atoi(lengthText)
		if err != nil {
			return fmt.Errorf("invalid length: %q", lengthText)
		}
	}

	specialsText, err := getSimpleText(a.reader, "Include special characters? (yes/no) [yes]", os.Stdout)
	if err != nil {
		return err
	}
	specials := !strings.EqualFold(specialsText, "no")

	printlnFn(generatePassword(length, specials))
	return nil
}
