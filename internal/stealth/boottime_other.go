//go:build !linux

package stealth

// bootTime is unavailable outside linux; the remaining entropy sources
// still vary per process.
func bootTime() uint64 {
	return 0
}
