//go:build !linux

package termstatus

// isProcessBackground always returns false, the status lines are updated
// regardless of the process group.
func isProcessBackground(_ uintptr) bool {
	return false
}
