package gate

import (
	"sync"
	"sync/atomic"
)

// Registry tracks [StatusReporter] instances and the pool configurations
// loaded from file, and derives an aggregate [Overview].
//
// Pattern: Singleton — DefaultRegistry uses sync.OnceValue for safe lazy
// init; explicit registries can be created for testing or multi-tenant
// scenarios.
type Registry struct {
	reporters atomic.Pointer[[]StatusReporter]
	configs   map[string]PoolConfig
	mu        sync.Mutex
}

//nolint:gochecknoglobals // singleton via sync.OnceValue
var defaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}

	var empty []StatusReporter

	r.reporters.Store(&empty)

	return r
}

// Register adds a StatusReporter to the registry. This is typically called
// during startup by [GetPool]. It is safe for concurrent use but intended
// for initialization only.
func (r *Registry) Register(sr StatusReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.reporters.Load()
	// Create a new slice (copy-on-write) to avoid mutating the slice
	// that concurrent readers may be iterating.
	updated := make([]StatusReporter, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, sr)
	r.reporters.Store(&updated)
}

// CheckStatus snapshots all registered pools. Saturated is true if any pool
// currently has no idle permit.
func (r *Registry) CheckStatus() Overview {
	reporters := *r.reporters.Load()

	overview := Overview{
		Pools: make([]PoolStatus, 0, len(reporters)),
	}

	for _, sr := range reporters {
		ps := sr.Status()
		overview.Pools = append(overview.Pools, ps)

		if ps.Saturated {
			overview.Saturated = true
		}
	}

	return overview
}

// DefaultRegistry returns the package-level global registry, creating it
// on first call.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
