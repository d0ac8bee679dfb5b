// Package location parses the bucket argument into a backend scheme and the
// configuration for that backend.
package location

import (
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// DefaultScheme is used for plain bucket names without a scheme prefix.
const DefaultScheme = "s3"

// Location specifies the bucket or container whose objects are restored,
// including the backend used to access it.
type Location struct {
	Scheme string
	Config interface{}
}

// Parse extracts location information from the string s. If s starts with a
// registered backend name followed by a colon, that backend's ParseConfig
// function is called. Otherwise s is a bucket name for the default backend.
func Parse(registry *Registry, s string) (u Location, err error) {
	if s == "" {
		return Location{}, errors.Fatal("no bucket given")
	}

	scheme, _, found := strings.Cut(s, ":")
	if !found {
		scheme = DefaultScheme
		s = DefaultScheme + ":" + s
	}

	factory := registry.Lookup(scheme)
	if factory == nil {
		return Location{}, errors.Fatalf("invalid backend %q in %q, known backends are %v", scheme, s, strings.Join(registry.Schemes(), ", "))
	}

	u.Scheme = scheme
	u.Config, err = factory.ParseConfig(s)
	if err != nil {
		return Location{}, err
	}

	return u, nil
}
