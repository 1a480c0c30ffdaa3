package vault

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/upass-project/upass/internal/common"
)

// Validate checks the whole entry list against the vault bounds: entry
// count, per-entry field constraints, note uniqueness and serialized
// size. It must pass before anything is encrypted or sent.
func Validate(entries []Entry) error {
	if len(entries) > MaxEntries {
		return fmt.Errorf("%w: vault is full (max %d entries)", common.ErrValidation, MaxEntries)
	}

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return err
		}
		key := strings.ToLower(entries[i].Note)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNote, entries[i].Note)
		}
		seen[key] = struct{}{}
	}

	return validateSize(entries, MaxSerializedKB*1024)
}

// validateSize enforces the serialized payload limit.
func validateSize(entries []Entry, maxBytes int) error {
	data, err := Marshal(entries)
	if err != nil {
		return err
	}
	if len(data) > maxBytes {
		return fmt.Errorf("%w: serialized vault exceeds %d KB", common.ErrValidation, MaxSerializedKB)
	}
	return nil
}

// Marshal serializes the entries ordered by note. An empty vault
// serializes as "[]", never null, so the encrypted payload of a fresh
// registration is well-formed JSON.
func Marshal(entries []Entry) ([]byte, error) {
	sorted := SortByNote(entries)
	if sorted == nil {
		sorted = []Entry{}
	}
	data, err := json.Marshal(sorted)
	if err != nil {
		return nil, fmt.Errorf("vault marshal: %w", err)
	}
	return data, nil
}

// Unmarshal parses a decrypted vault payload.
func Unmarshal(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("vault unmarshal: %w", err)
	}
	return entries, nil
}

// SortByNote returns a copy of entries ordered by note,
// case-insensitively. The input is not modified.
func SortByNote(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Note) < strings.ToLower(out[j].Note)
	})
	return out
}

// Find returns the entry with the given note (case-insensitive).
func Find(entries []Entry, note string) (Entry, bool) {
	for i := range entries {
		if sameNote(entries[i].Note, note) {
			return entries[i], true
		}
	}
	return Entry{}, false
}

// Add inserts a new entry, rejecting duplicates of an existing note.
func Add(entries []Entry, e Entry) ([]Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if len(entries) >= MaxEntries {
		return nil, fmt.Errorf("%w: vault is full (max %d entries)", common.ErrValidation, MaxEntries)
	}
	if _, exists := Find(entries, e.Note); exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNote, e.Note)
	}
	return SortByNote(append(entries, e)), nil
}

// Update replaces the content of the entry keyed by note. The updated
// entry may carry a different note (a rename); renames that collide
// with another existing note are rejected. CreatedAt is preserved and
// UpdatedAt is refreshed.
func Update(entries []Entry, note string, updated Entry) ([]Entry, error) {
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	idx := -1
	for i := range entries {
		if sameNote(entries[i].Note, note) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: entry %q", common.ErrNotFound, note)
	}

	if !sameNote(note, updated.Note) {
		if _, exists := Find(entries, updated.Note); exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNote, updated.Note)
		}
	}

	out := append([]Entry(nil), entries...)
	updated.CreatedAt = out[idx].CreatedAt
	updated.UpdatedAt = now()
	out[idx] = updated
	return SortByNote(out), nil
}

// Remove deletes the entry keyed by note.
func Remove(entries []Entry, note string) ([]Entry, error) {
	for i := range entries {
		if sameNote(entries[i].Note, note) {
			out := append([]Entry(nil), entries[:i]...)
			return append(out, entries[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: entry %q", common.ErrNotFound, note)
}

// Search returns the entries whose note or username contains the query,
// case-insensitively.
func Search(entries []Entry, query string) []Entry {
	q := strings.ToLower(query)
	var out []Entry
	for i := range entries {
		if strings.Contains(strings.ToLower(entries[i].Note), q) ||
			strings.Contains(strings.ToLower(entries[i].Username), q) {
			out = append(out, entries[i])
		}
	}
	return out
}
