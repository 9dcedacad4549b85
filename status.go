package gate

import (
	"net/http"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// poolStats accumulates lifetime counters; all fields are atomics so the
// pool loops and external snapshots never contend.
type poolStats struct {
	minted      atomic.Uint64
	returned    atomic.Uint64
	orphans     atomic.Uint64
	expired     atomic.Uint64
	lateReturns atomic.Uint64
}

// PoolStatus is a point-in-time snapshot of a pool, suitable for JSON
// encoding in status endpoints.
type PoolStatus struct {
	Name             string `json:"name,omitempty"`
	Capacity         int    `json:"capacity"`
	Idle             int    `json:"idle"`
	InFlight         int    `json:"in_flight"`
	Minted           uint64 `json:"minted"`
	Returned         uint64 `json:"returned"`
	OrphansRecovered uint64 `json:"orphans_recovered"`
	LeasesExpired    uint64 `json:"leases_expired"`
	LateReturns      uint64 `json:"late_returns"`
	Saturated        bool   `json:"saturated"`
}

// StatusReporter is implemented by [Pool]. The interface exists so a
// [Registry] can track pools without caring how they were constructed.
type StatusReporter interface {
	// Name returns the pool's configured name.
	Name() string
	// Status returns the pool's current snapshot.
	Status() PoolStatus
}

// Name returns the name set with [WithName] or through [GetPool].
func (p *Pool) Name() string { return p.name }

// Status returns a snapshot of the pool's counters and occupancy. Idle
// counts permits waiting in the supply; a saturated pool has none, meaning
// the next request will suspend (and trigger a scavenge).
func (p *Pool) Status() PoolStatus {
	idle := len(p.supply)

	return PoolStatus{
		Name:             p.name,
		Capacity:         p.capacity,
		Idle:             idle,
		InFlight:         p.capacity - idle,
		Minted:           p.stats.minted.Load(),
		Returned:         p.stats.returned.Load(),
		OrphansRecovered: p.stats.orphans.Load(),
		LeasesExpired:    p.stats.expired.Load(),
		LateReturns:      p.stats.lateReturns.Load(),
		Saturated:        idle == 0,
	}
}

// Overview is the result of snapshotting all pools in a [Registry].
type Overview struct {
	Pools     []PoolStatus `json:"pools"`
	Saturated bool         `json:"saturated"`
}

// StatusHandler returns an [http.Handler] that reports every pool
// registered with reg. It responds 200 OK while at least one permit is idle
// in every pool, and 503 Service Unavailable when some pool is saturated,
// so it can double as a load-shedding signal. The body is always a
// JSON-encoded [Overview].
func StatusHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		overview := reg.CheckStatus()

		writer.Header().Set("Content-Type", "application/json")

		if overview.Saturated {
			writer.WriteHeader(http.StatusServiceUnavailable)
		} else {
			writer.WriteHeader(http.StatusOK)
		}

		//nolint:errcheck // best-effort JSON encoding to HTTP response
		_ = json.NewEncoder(writer).Encode(overview)
	})
}
