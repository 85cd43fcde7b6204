//go:build unix

package secure

import "golang.org/x/sys/unix"

func lockMemory(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return unix.Mlock(p)
}

func unlockMemory(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return unix.Munlock(p)
}
