package retry

import "testing"

// TestFastRetries reduces the backoff delays to a few milliseconds for the
// duration of the test.
func TestFastRetries(t testing.TB) {
	fastRetries = true
	t.Cleanup(func() {
		fastRetries = false
	})
}
