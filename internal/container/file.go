package container

import (
	"fmt"
	"os"
	"path/filepath"
)

// Extension is the conventional suffix for saved notes.
const Extension = ".amnesio"

// WriteFile persists a sealed container atomically: the bytes go to a
// temp file in the target directory which is then renamed into place,
// so a failed save never leaves a half-written container. The final
// file is made read-only as a guard against casual overwrites.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".amnesia-save-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing container: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing container: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing container: %w", err)
	}

	// A previous read-only save would block the rename target.
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0200 == 0 {
		_ = os.Chmod(path, 0600)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing container: %w", err)
	}
	if err := os.Chmod(path, 0400); err != nil {
		return fmt.Errorf("marking container read-only: %w", err)
	}
	return nil
}

// ReadFile loads a serialized container from disk.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	return data, nil
}

// NormalizePath appends the conventional extension when the given path
// has none, mirroring how saves name files.
func NormalizePath(path string) string {
	if filepath.Ext(path) == "" {
		return path + Extension
	}
	return path
}
