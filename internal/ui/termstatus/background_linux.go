package termstatus

import (
	"golang.org/x/sys/unix"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
)

// isProcessBackground reports whether the current process is running in the
// background. fd must be a file descriptor for the terminal.
func isProcessBackground(fd uintptr) bool {
	// We need to use IoctlGetUint32 here, because pid_t is 32-bit even on
	// 64-bit Linux. IoctlGetInt doesn't work on big-endian platforms:
	// https://github.com/golang/go/issues/45585
	// https://github.com/golang/go/issues/60429
	pid, err := unix.IoctlGetUint32(int(fd), unix.TIOCGPGRP)
	if err != nil {
		debug.Log("Can't check if we are in the background. Using default behaviour. Error: %s\n", err.Error())
		return false
	}
	return int(pid) != unix.Getpgrp()
}
