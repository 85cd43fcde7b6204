//go:build unix

package guard

import "golang.org/x/sys/unix"

// disableCoreDumps sets the core file size limit to zero so a crash
// cannot write note plaintext to disk.
func disableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}

// coreDumpLimit reports the current core rlimit for diagnostics.
func coreDumpLimit() (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &lim); err != nil {
		return 0, err
	}
	return uint64(lim.Cur), nil
}
