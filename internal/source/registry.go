package source

import (
	"github.com/timmy/trendpipe/internal/domain"
)

// Registry holds the set of enabled sources for a run. Adapters are
// selected by configuration, never hardwired into the pipeline.
type Registry struct {
	sources []Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a source. Nil sources are ignored so callers can pass
// conditionally constructed adapters without guarding.
func (r *Registry) Register(s Source) {
	if s != nil {
		r.sources = append(r.sources, s)
	}
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []Source {
	return r.sources
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// IDs returns the identifiers of all registered sources.
func (r *Registry) IDs() []domain.SourceID {
	ids := make([]domain.SourceID, 0, len(r.sources))
	for _, s := range r.sources {
		ids = append(ids, s.ID())
	}
	return ids
}
