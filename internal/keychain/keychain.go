// Package keychain caches save passwords in the operating system's
// keyring, strictly opt-in via the --keyring flag. Only the
// user-supplied password for a specific note file is ever stored; the
// stealth key and derived encryption keys never leave the process.
package keychain

import (
	"errors"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const service = "amnesia"

// ErrNotFound indicates no password is cached for the file.
var ErrNotFound = errors.New("no cached password for this note")

// entryKey normalizes the note path so relative and absolute spellings
// of the same file share one entry.
func entryKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Store caches the password for the note at path.
func Store(path, password string) error {
	return keyring.Set(service, entryKey(path), password)
}

// Lookup returns the cached password for the note at path.
func Lookup(path string) (string, error) {
	secret, err := keyring.Get(service, entryKey(path))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

// Clear removes the cached password for the note at path. Clearing an
// absent entry is not an error.
func Clear(path string) error {
	err := keyring.Delete(service, entryKey(path))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Available probes whether an OS keyring backend is usable.
func Available() bool {
	_, err := keyring.Get(service, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
