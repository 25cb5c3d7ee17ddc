// Package storage persists whole serialized values under fixed keys.
//
// Each key holds a complete snapshot; values are replaced in a single write
// and never patched in place.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

const (
	// NotesKey holds the serialized notes snapshot (notes plus templates).
	NotesKey = "zenotes-data"
	// SettingsKey holds the serialized user preferences.
	SettingsKey = "zenotes-settings"
)

var (
	// ErrNotFound indicates that nothing has been stored under the key yet.
	ErrNotFound = errors.New("storage: key not found")
	// ErrInvalidKey indicates that a key is empty or contains unsupported characters.
	ErrInvalidKey = errors.New("storage: invalid key")

	keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)
)

// Store reads and writes whole values by key.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
