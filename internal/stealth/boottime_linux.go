//go:build linux

package stealth

import (
	"os"
	"strconv"
	"strings"
)

// bootTime reads the kernel boot timestamp from /proc/stat. Zero on any
// failure; the other entropy sources still apply.
func bootTime() uint64 {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, "btime "); ok {
			v, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}
