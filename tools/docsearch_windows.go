//go:build windows

package tools

import "golang.org/x/sys/windows"

// isProcessRunning reports whether pid names a live process. A handle can
// only be opened for an existing process.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION|windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	// STILL_ACTIVE
	return code == 259
}
