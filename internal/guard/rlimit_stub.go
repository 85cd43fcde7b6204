//go:build !unix

package guard

import "errors"

var errNoRlimit = errors.New("core dump limits not supported on this platform")

func disableCoreDumps() error {
	return errNoRlimit
}

func coreDumpLimit() (uint64, error) {
	return 0, errNoRlimit
}
