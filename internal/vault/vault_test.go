package vault

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upass-project/upass/internal/common"
)

func entry(note string) Entry {
	return NewEntry(note, "alice", "s3cret", "")
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Entry)
		wantErr bool
	}{
		{"valid", func(e *Entry) {}, false},
		{"blank note", func(e *Entry) { e.Note = "  " }, true},
		{"note too long", func(e *Entry) { e.Note = strings.Repeat("n", MaxNoteLength+1) }, true},
		{"username too long", func(e *Entry) { e.Username = strings.Repeat("u", MaxUsernameLength+1) }, true},
		{"blank password", func(e *Entry) { e.Password = "" }, true},
		{"password too long", func(e *Entry) { e.Password = strings.Repeat("p", MaxPasswordLength+1) }, true},
		{"totp secret too long", func(e *Entry) { e.TOTPSecret = strings.Repeat("A", MaxTOTPSecretLength+1) }, true},
		{"empty username allowed", func(e *Entry) { e.Username = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("mail")
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAdd_RejectsCaseInsensitiveDuplicate(t *testing.T) {
	entries, err := Add(nil, entry("Mail"))
	require.NoError(t, err)

	_, err = Add(entries, entry("mail"))
	assert.ErrorIs(t, err, ErrDuplicateNote)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = Add(entries, entry("MAIL"))
	assert.ErrorIs(t, err, ErrDuplicateNote)
}

func TestAdd_EnforcesEntryCount(t *testing.T) {
	entries := make([]Entry, 0, MaxEntries)
	for i := 0; i < MaxEntries; i++ {
		entries = append(entries, NewEntry("note"+string(rune('a'+i%26))+strings.Repeat("x", i/26+1), "u", "p", ""))
	}
	_, err := Add(entries, entry("one-too-many"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdate(t *testing.T) {
	entries, err := Add(nil, entry("mail"))
	require.NoError(t, err)
	created := entries[0].CreatedAt

	updated := entries[0]
	updated.Password = "newpass"
	entries, err = Update(entries, "MAIL", updated)
	require.NoError(t, err)

	got, ok := Find(entries, "mail")
	require.True(t, ok)
	assert.Equal(t, "newpass", got.Password)
	assert.Equal(t, created, got.CreatedAt)
}

func TestUpdate_RenameCollision(t *testing.T) {
	entries, err := Add(nil, entry("mail"))
	require.NoError(t, err)
	entries, err = Add(entries, entry("bank"))
	require.NoError(t, err)

	renamed := entry("bank")
	renamed.Note = "Mail"
	_, err = Update(entries, "bank", renamed)
	assert.ErrorIs(t, err, ErrDuplicateNote)

	// Renaming to a different casing of itself is not a collision.
	self, _ := Find(entries, "bank")
	self.Note = "BANK"
	_, err = Update(entries, "bank", self)
	assert.NoError(t, err)
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := Update(nil, "missing", entry("missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemove(t *testing.T) {
	entries, err := Add(nil, entry("mail"))
	require.NoError(t, err)

	entries, err = Remove(entries, "MAIL")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = Remove(entries, "mail")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestValidate_SizeBound(t *testing.T) {
	entries := []Entry{entry("mail"), entry("bank")}
	require.NoError(t, validateSize(entries, MaxSerializedKB*1024))

	err := validateSize(entries, 16)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "KB")
}

func TestValidate_CountBound(t *testing.T) {
	entries := make([]Entry, MaxEntries+1)
	err := Validate(entries)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "full")
}

func TestMarshal_EmptyVault(t *testing.T) {
	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestMarshalUnmarshal_OrderedByNote(t *testing.T) {
	entries := []Entry{entry("zeta"), entry("Alpha"), entry("mid")}
	data, err := Marshal(entries)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	var notes []string
	for _, e := range got {
		notes = append(notes, e.Note)
	}
	if diff := cmp.Diff([]string{"Alpha", "mid", "zeta"}, notes); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch(t *testing.T) {
	entries := []Entry{
		NewEntry("mail", "alice@example.com", "p", ""),
		NewEntry("bank", "bob", "p", ""),
	}
	assert.Len(t, Search(entries, "ALICE"), 1)
	assert.Len(t, Search(entries, "b"), 1)
	assert.Empty(t, Search(entries, "zzz"))
}
