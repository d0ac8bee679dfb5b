// Package backend defines the interface to the object stores whose archived
// objects are restored.
package backend

import (
	"context"
	"time"

	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// Object is an entry found while listing a bucket.
type Object struct {
	Key          string
	Size         int64
	StorageClass string
}

// RestoreRequest describes how an archived object is made readable again.
type RestoreRequest struct {
	Tier Tier
	// Days is the number of days the restored copy is kept. Providers which
	// restore permanently ignore it.
	Days int
}

// RestoreStatus is the restore state of a single object.
type RestoreStatus struct {
	// Archived is false for objects stored in a tier that can be read
	// directly.
	Archived bool
	// Ongoing is true while a requested restore has not finished yet.
	Ongoing bool
	// Ready is true if a restored copy can be read now.
	Ready bool
	// Expiry is the time the restored copy is removed again, if known.
	Expiry time.Time
}

// Available reports whether the object can be read now.
func (s RestoreStatus) Available() bool {
	return !s.Archived || s.Ready
}

// Backend is an object store holding archived objects. All methods must be
// safe for concurrent use.
type Backend interface {
	// Location returns a string that describes the bucket or container.
	Location() string

	// List calls fn for every archived object. Objects in tiers that can
	// be read directly are not reported. If fn returns an error, listing
	// stops and the error is returned.
	List(ctx context.Context, fn func(Object) error) error

	// Restore requests a readable copy of the object key. Requesting a
	// restore which is already in progress is not an error.
	Restore(ctx context.Context, key string, req RestoreRequest) error

	// Status returns the restore state of the object key.
	Status(ctx context.Context, key string) (RestoreStatus, error)

	// Classify maps an error returned by this backend to a retry class.
	Classify(err error) retry.Class

	// Close releases all resources.
	Close() error
}

// ApplyEnvironmenter fills in a backend configuration from the environment.
type ApplyEnvironmenter interface {
	ApplyEnvironment(prefix string)
}
