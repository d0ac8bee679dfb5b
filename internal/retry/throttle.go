package retry

import (
	"context"
	"sync"
	"time"
)

// Throttle is the backoff state shared by all workers of a run. Every worker
// that observes a throttling signal from the provider calls Signal, which
// pushes back the instant at which any worker may send its next request.
// Consecutive signals double the delay up to a cap; successes decay it.
//
// A nil *Throttle never delays.
type Throttle struct {
	base, max time.Duration

	mu          sync.Mutex
	consecutive int
	until       time.Time

	now func() time.Time
}

// NewThrottle returns a throttle whose delay starts at base and never exceeds max.
func NewThrottle(base, max time.Duration) *Throttle {
	if max < base {
		max = base
	}
	return &Throttle{base: base, max: max, now: time.Now}
}

// delayFor returns the delay for n consecutive throttling signals.
func (t *Throttle) delayFor(n int) time.Duration {
	if n <= 0 {
		return 0
	}

	d := t.base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= t.max || d <= 0 {
			return t.max
		}
	}
	if d > t.max {
		return t.max
	}
	return d
}

// Signal records a throttling signal and returns the delay all workers now
// observe before their next request.
func (t *Throttle) Signal() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutive++
	d := t.delayFor(t.consecutive)
	if until := t.now().Add(d); until.After(t.until) {
		t.until = until
	}
	return d
}

// Success decays the throttle by one step.
func (t *Throttle) Success() {
	if t == nil {
		return
	}

	t.mu.Lock()
	if t.consecutive > 0 {
		t.consecutive--
	}
	t.mu.Unlock()
}

// Delay returns the delay that the next throttling signal decays from, zero
// if no signal is pending.
func (t *Throttle) Delay() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delayFor(t.consecutive)
}

// Wait blocks until requests may be sent again or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}

	for {
		t.mu.Lock()
		wait := t.until.Sub(t.now())
		t.mu.Unlock()

		if wait <= 0 {
			return ctx.Err()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		// another worker may have extended the deadline meanwhile, check again
	}
}
