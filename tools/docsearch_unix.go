//go:build unix

package tools

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isProcessRunning reports whether pid names a live process. Signal 0 probes
// for existence without delivering anything.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.EPERM):
		// Exists, owned by someone else
		return true
	default:
		// ESRCH or anything unexpected
		return false
	}
}
