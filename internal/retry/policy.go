// Package retry decides whether and when a failed remote operation is
// attempted again. Per-item retries use an exponential backoff, and throttling
// signals are shared by all workers of a run through a Throttle.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// Policy configures how often and how patiently a single item is retried.
type Policy struct {
	// MaxAttempts is the number of attempts per item, including the first.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the delay between two attempts.
	MaxDelay time.Duration
	// Classify maps an error to a Class. DefaultClassify is used if nil.
	Classify func(error) Class
}

// DefaultPolicy returns the policy used when nothing else is configured. It
// leaves Classify unset, so callers can install a backend specific classifier.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
	}
}

// Validate checks that the policy can be used.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.Fatalf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return errors.Fatalf("backoff base delay must be positive, got %v", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.Fatalf("backoff cap %v is smaller than the base delay %v", p.MaxDelay, p.BaseDelay)
	}
	return nil
}

func (p Policy) classify(err error) Class {
	if p.Classify == nil {
		return DefaultClassify(err)
	}
	return p.Classify(err)
}

var fastRetries = false

func (p Policy) backoff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2
	// the attempt budget ends the retries, not the elapsed time
	bo.MaxElapsedTime = 0

	if fastRetries {
		bo.InitialInterval = time.Millisecond
		bo.MaxInterval = 5 * time.Millisecond
	}

	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx)
}

// Outcome is the final result of driving one item through Do.
type Outcome struct {
	// Attempts counts how often the operation was invoked.
	Attempts int
	// Class is the classification of Err. It is meaningless if Err is nil.
	Class Class
	// Err is nil if the operation succeeded.
	Err error
}

// Do invokes op until it succeeds, returns an error that is not worth
// retrying, or the attempt budget of p is used up. Before each attempt Do
// waits until the shared throttle th (which may be nil) lets requests through.
// report, if not nil, is called before each retry with the error and the
// delay until the next attempt.
func Do(ctx context.Context, p Policy, th *Throttle, op func(context.Context) error, report func(err error, d time.Duration)) Outcome {
	var res Outcome

	// Don't do anything when called with an already cancelled context.
	if ctx.Err() != nil {
		return Outcome{Class: Terminal, Err: ctx.Err()}
	}

	err := backoff.RetryNotify(func() error {
		if err := th.Wait(ctx); err != nil {
			res.Class = Terminal
			return backoff.Permanent(err)
		}

		res.Attempts++
		err := op(ctx)
		if err == nil {
			th.Success()
			return nil
		}

		res.Class = p.classify(err)
		debug.Log("attempt %d failed (%v): %v", res.Attempts, res.Class, err)

		switch res.Class {
		case Throttled:
			d := th.Signal()
			debug.Log("throttle signal, shared delay now %v", d)
		case Terminal, Unauthorized:
			return backoff.Permanent(err)
		}
		return err
	}, p.backoff(ctx), func(err error, d time.Duration) {
		if report != nil {
			report(err, d)
		}
	})

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		res.Class = Terminal
	}
	res.Err = err
	return res
}
