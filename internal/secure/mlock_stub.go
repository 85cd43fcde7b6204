//go:build !unix

package secure

import "errors"

var errNoMlock = errors.New("memory locking not supported on this platform")

func lockMemory(p []byte) error {
	return errNoMlock
}

func unlockMemory(p []byte) error {
	return nil
}
