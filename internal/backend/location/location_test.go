package location_test

import (
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

type testConfig struct {
	loc string
}

func testFactory(scheme string) location.Factory {
	return location.NewHTTPBackendFactory[testConfig, backend.Backend](
		scheme,
		func(s string) (*testConfig, error) {
			return &testConfig{loc: s}, nil
		}, nil,
	)
}

func testRegistry() *location.Registry {
	registry := location.NewRegistry()
	registry.Register(testFactory("s3"))
	registry.Register(testFactory("azure"))
	return registry
}

func TestParse(t *testing.T) {
	var tests = []struct {
		in     string
		scheme string
		loc    string
	}{
		{"photos", "s3", "s3:photos"},
		{"s3:photos", "s3", "s3:photos"},
		{"s3:photos/2018", "s3", "s3:photos/2018"},
		{"s3:https://minio.local:9000/photos", "s3", "s3:https://minio.local:9000/photos"},
		{"azure:archive", "azure", "azure:archive"},
	}

	registry := testRegistry()
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			u, err := location.Parse(registry, test.in)
			rtest.OK(t, err)
			rtest.Equals(t, test.scheme, u.Scheme)
			rtest.Equals(t, &testConfig{loc: test.loc}, u.Config)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	registry := testRegistry()

	for _, s := range []string{"", "gs:photos"} {
		_, err := location.Parse(registry, s)
		rtest.Assert(t, errors.IsFatal(err), "expected fatal error for %q, got %v", s, err)
	}
}

func TestSchemes(t *testing.T) {
	rtest.Equals(t, []string{"azure", "s3"}, testRegistry().Schemes())
}
