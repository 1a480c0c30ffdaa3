// Package vault defines the credential entry model and the local rules
// enforced on it: field bounds, case-insensitive note uniqueness, the
// overall vault size limits, and the note-keyed add/update/remove
// operations used by the sync layer. All checks here run before any
// network call.
package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/upass-project/upass/internal/common"
)

// Bounds enforced on every save. These match the deployed server's
// limits; raising them client-side would only produce rejected saves.
const (
	MaxEntries          = 1024
	MaxNoteLength       = 128
	MaxUsernameLength   = 64
	MaxPasswordLength   = 128
	MaxTOTPSecretLength = 64

	// MaxSerializedKB caps the JSON payload size before encryption.
	MaxSerializedKB = 1024
)

// ErrDuplicateNote marks an insert or rename that would collide with an
// existing note (case-insensitive). It matches common.ErrValidation.
var ErrDuplicateNote = fmt.Errorf("%w: duplicate note", common.ErrValidation)

// Entry is a single credential record. The note is its unique key.
// Timestamps are RFC 3339 UTC strings, set on creation and refreshed on
// every content change.
type Entry struct {
	Note       string `json:"note"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTPSecret string `json:"totp_secret,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// now returns the timestamp format used in serialized entries.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewEntry builds an entry with fresh timestamps. The result is not yet
// validated; callers go through Add which is.
func NewEntry(note, username, password, totpSecret string) Entry {
	ts := now()
	return Entry{
		Note:       note,
		Username:   username,
		Password:   password,
		TOTPSecret: totpSecret,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// Validate checks the per-entry field constraints.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Note) == "" {
		return fmt.Errorf("%w: note must not be blank", common.ErrValidation)
	}
	if len(e.Note) > MaxNoteLength {
		return fmt.Errorf("%w: note longer than %d characters", common.ErrValidation, MaxNoteLength)
	}
	if len(e.Username) > MaxUsernameLength {
		return fmt.Errorf("%w: username longer than %d characters", common.ErrValidation, MaxUsernameLength)
	}
	if e.Password == "" {
		return fmt.Errorf("%w: password must not be blank", common.ErrValidation)
	}
	if len(e.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password longer than %d characters", common.ErrValidation, MaxPasswordLength)
	}
	if len(e.TOTPSecret) > MaxTOTPSecretLength {
		return fmt.Errorf("%w: totp secret longer than %d characters", common.ErrValidation, MaxTOTPSecretLength)
	}
	return nil
}

// sameNote compares notes case-insensitively.
func sameNote(a, b string) bool {
	return strings.EqualFold(a, b)
}
