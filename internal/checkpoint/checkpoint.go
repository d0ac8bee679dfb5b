// Package checkpoint persists which items of a batch have already been
// handled, so an interrupted run can be resumed without repeating work.
//
// A record is durable before Record returns. Recording an item twice is a
// no-op, and concurrent callers never produce interleaved or duplicate
// records.
package checkpoint

import "github.com/marekhanzlik/s3-glacier-restore/internal/errors"

var (
	// ErrCorrupt is returned when an existing checkpoint cannot be parsed.
	ErrCorrupt = errors.New("checkpoint is corrupt")
	// ErrLocked is returned when another process holds the scope lock.
	ErrLocked = errors.New("scope is locked by another process")
	// ErrClosed is returned by Record after Close.
	ErrClosed = errors.New("checkpoint is closed")
)

// Set is a durable set of item identifiers.
type Set interface {
	// Contains reports whether item has been recorded.
	Contains(item string) bool
	// Record adds item durably. It is safe for concurrent use.
	Record(item string) error
	// Len returns the number of recorded items.
	Len() int
	// Close flushes and releases the underlying storage.
	Close() error
}

// Options configures how an existing checkpoint is opened.
type Options struct {
	// ResetCorrupt moves a corrupt checkpoint aside and starts with an empty
	// one instead of failing with ErrCorrupt.
	ResetCorrupt bool
}

// Backend names the storage used for checkpoints.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// String implements pflag.Value.
func (b *Backend) String() string {
	if *b == "" {
		return string(BackendFile)
	}
	return string(*b)
}

// Set implements pflag.Value.
func (b *Backend) Set(s string) error {
	switch Backend(s) {
	case BackendFile, BackendSQLite:
		*b = Backend(s)
		return nil
	}
	return errors.Fatalf("invalid checkpoint backend %q, must be one of file, sqlite", s)
}

// Type implements pflag.Value.
func (b *Backend) Type() string {
	return "backend"
}
