package synth

import (
	"context"
	"fmt"
	"sort"
)

// Router dispatches synthesis calls to named engine backends with a
// fallback default, O(1) lookup by name.
type Router struct {
	backends map[string]Synthesizer
	fallback string
}

// NewRouter creates a router over the registered backends. The
// fallback engine is used when the requested name is unknown or empty.
func NewRouter(backends map[string]Synthesizer, fallback string) *Router {
	return &Router{backends: backends, fallback: fallback}
}

// Synthesize routes to the requested engine and runs the call.
func (r *Router) Synthesize(ctx context.Context, text, engine string, opts Options) ([]byte, error) {
	backend, err := r.route(engine)
	if err != nil {
		return nil, err
	}
	return backend.SynthesizeAudio(ctx, text, opts)
}

func (r *Router) route(engine string) (Synthesizer, error) {
	if backend, ok := r.backends[engine]; ok {
		return backend, nil
	}
	if backend, ok := r.backends[r.fallback]; ok {
		return backend, nil
	}
	return nil, fmt.Errorf("%w: no backend for engine %q", ErrEngineUnavailable, engine)
}

// Has reports whether an engine is registered under the given name.
func (r *Router) Has(engine string) bool {
	_, ok := r.backends[engine]
	return ok
}

// Engines returns the registered engine names, sorted.
func (r *Router) Engines() []string {
	names := make([]string, 0, len(r.backends))
	for k := range r.backends {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
