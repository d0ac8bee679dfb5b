package retry

import (
	"context"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// Class tells the dispatcher what to do with an error returned by a remote
// operation.
type Class int

const (
	// Retryable errors are transient (timeouts, connection resets, expired
	// session tokens) and the operation is attempted again after a backoff.
	Retryable Class = iota
	// Throttled errors signal that the provider is rate limiting requests.
	// They are retried like Retryable errors and additionally slow down all
	// workers through the shared Throttle.
	Throttled
	// Terminal errors will not go away by retrying (missing object, object
	// not in a cold tier).
	Terminal
	// Unauthorized errors are terminal for the item and, when they pile up
	// across items, for the whole run.
	Unauthorized
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Throttled:
		return "throttled"
	case Terminal:
		return "terminal"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

type classifiedError struct {
	err   error
	class Class
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Mark attaches class to err, overriding whatever a classifier would decide.
// Mark returns nil if err is nil.
func Mark(err error, class Class) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: class}
}

// ClassOf returns the class attached to err by Mark, if any.
func ClassOf(err error) (Class, bool) {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class, true
	}
	return Retryable, false
}

// DefaultClassify honours classes attached with Mark, treats context errors
// as terminal and everything else as retryable.
func DefaultClassify(err error) Class {
	if c, ok := ClassOf(err); ok {
		return c
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Terminal
	}
	return Retryable
}
