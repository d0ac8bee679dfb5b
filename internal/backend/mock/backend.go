package mock

import (
	"context"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// Backend implements a mock backend.
type Backend struct {
	LocationFn func() string
	ListFn     func(ctx context.Context, fn func(backend.Object) error) error
	RestoreFn  func(ctx context.Context, key string, req backend.RestoreRequest) error
	StatusFn   func(ctx context.Context, key string) (backend.RestoreStatus, error)
	ClassifyFn func(err error) retry.Class
	CloseFn    func() error
}

// make sure that *Backend implements backend.Backend
var _ backend.Backend = &Backend{}

// NewBackend returns new mock Backend instance
func NewBackend() *Backend {
	be := &Backend{}
	return be
}

// Location returns a location string.
func (m *Backend) Location() string {
	if m.LocationFn == nil {
		return "mock"
	}

	return m.LocationFn()
}

// List calls ListFn.
func (m *Backend) List(ctx context.Context, fn func(backend.Object) error) error {
	if m.ListFn == nil {
		return nil
	}

	return m.ListFn(ctx, fn)
}

// Restore calls RestoreFn.
func (m *Backend) Restore(ctx context.Context, key string, req backend.RestoreRequest) error {
	if m.RestoreFn == nil {
		return errors.New("not implemented")
	}

	return m.RestoreFn(ctx, key, req)
}

// Status calls StatusFn.
func (m *Backend) Status(ctx context.Context, key string) (backend.RestoreStatus, error) {
	if m.StatusFn == nil {
		return backend.RestoreStatus{}, errors.New("not implemented")
	}

	return m.StatusFn(ctx, key)
}

// Classify calls ClassifyFn, falling back to retry.DefaultClassify.
func (m *Backend) Classify(err error) retry.Class {
	if m.ClassifyFn == nil {
		return retry.DefaultClassify(err)
	}

	return m.ClassifyFn(err)
}

// Close the backend.
func (m *Backend) Close() error {
	if m.CloseFn == nil {
		return nil
	}

	return m.CloseFn()
}
