package location

import (
	"context"
	"net/http"
	"sort"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(factory Factory) {
	if r.factories[factory.Scheme()] != nil {
		panic("duplicate backend")
	}
	r.factories[factory.Scheme()] = factory
}

func (r *Registry) Lookup(scheme string) Factory {
	return r.factories[scheme]
}

// Schemes returns the names of all registered backends, sorted.
func (r *Registry) Schemes() []string {
	var list []string
	for scheme := range r.factories {
		list = append(list, scheme)
	}
	sort.Strings(list)
	return list
}

type Factory interface {
	Scheme() string
	ParseConfig(s string) (interface{}, error)
	Open(ctx context.Context, cfg interface{}, rt http.RoundTripper) (backend.Backend, error)
}

type genericBackendFactory[C any, T backend.Backend] struct {
	scheme        string
	parseConfigFn func(s string) (*C, error)
	openFn        func(ctx context.Context, cfg C, rt http.RoundTripper) (T, error)
}

func (f *genericBackendFactory[C, T]) Scheme() string {
	return f.scheme
}

func (f *genericBackendFactory[C, T]) ParseConfig(s string) (interface{}, error) {
	return f.parseConfigFn(s)
}

func (f *genericBackendFactory[C, T]) Open(ctx context.Context, cfg interface{}, rt http.RoundTripper) (backend.Backend, error) {
	return f.openFn(ctx, *cfg.(*C), rt)
}

// NewHTTPBackendFactory returns a factory for a backend that talks HTTP. The
// configuration returned by parseConfigFn is passed to openFn by value.
func NewHTTPBackendFactory[C any, T backend.Backend](
	scheme string,
	parseConfigFn func(s string) (*C, error),
	openFn func(ctx context.Context, cfg C, rt http.RoundTripper) (T, error)) Factory {

	return &genericBackendFactory[C, T]{
		scheme:        scheme,
		parseConfigFn: parseConfigFn,
		openFn:        openFn,
	}
}
