package checkpoint

import (
	"github.com/gofrs/flock"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// Lock is an exclusive advisory lock on a scope. It keeps two processes from
// appending to the same checkpoints.
type Lock struct {
	fl *flock.Flock
}

// LockScope acquires the lock file at path without waiting. If another
// process holds it, ErrLocked is returned.
func LockScope(path string) (*Lock, error) {
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire lock %v", path)
	}
	if !ok {
		return nil, errors.Wrapf(ErrLocked, "%v", path)
	}

	debug.Log("acquired lock %v", path)
	return &Lock{fl: fl}, nil
}

// Unlock releases the lock. The lock file is left in place.
func (l *Lock) Unlock() error {
	debug.Log("releasing lock %v", l.fl.Path())
	return errors.Wrap(l.fl.Unlock(), "Unlock")
}
