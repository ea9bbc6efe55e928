package scanner

import (
	"fmt"
	"sort"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Registry keeps a mapping from content kinds to their candidate sources.
type Registry struct {
	sources map[domain.Kind]ports.CandidateSource
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[domain.Kind]ports.CandidateSource{}}
}

// Register adds or replaces the source of its kind.
func (r *Registry) Register(source ports.CandidateSource) {
	if r.sources == nil {
		r.sources = map[domain.Kind]ports.CandidateSource{}
	}
	r.sources[source.Kind()] = source
}

// Resolve returns the source of a kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.Kind) (ports.CandidateSource, error) {
	if source, ok := r.sources[kind]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("source for %s is not registered", kind)
}

// Kinds lists registered kinds in a stable order.
func (r *Registry) Kinds() []domain.Kind {
	kinds := make([]domain.Kind, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
