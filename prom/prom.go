// Package prom exposes gate pool activity as Prometheus metrics.
//
// Each Collector owns its counters so that multiple pools (or tests) never
// trip double-registration panics on a shared registry.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/byte4ever/gate"
)

// Collector holds the metrics for one permit pool.
type Collector struct {
	minted    prometheus.Counter
	returned  prometheus.Counter
	orphans   prometheus.Counter
	leases    prometheus.Counter
	canceled  prometheus.Counter
	panics    prometheus.Counter
	inFlight  prometheus.Gauge
	reentrant prometheus.Counter
}

// New creates a Collector labelled with the pool name and registers its
// metrics on reg.
func New(reg prometheus.Registerer, pool string) *Collector {
	labels := prometheus.Labels{"pool": pool}

	c := &Collector{
		minted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_permits_minted_total",
			Help:        "Total permits minted, including replacements.",
			ConstLabels: labels,
		}),
		returned: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_permits_returned_total",
			Help:        "Total permits returned through an explicit close.",
			ConstLabels: labels,
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_permits_orphaned_total",
			Help:        "Total permits recovered after their holder dropped them.",
			ConstLabels: labels,
		}),
		leases: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_permit_leases_expired_total",
			Help:        "Total permits reclaimed because their lease ran out.",
			ConstLabels: labels,
		}),
		canceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_runs_canceled_total",
			Help:        "Total gated runs abandoned by their caller.",
			ConstLabels: labels,
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_run_panics_recovered_total",
			Help:        "Total panics in gated functions delivered as errors.",
			ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gate_permits_in_flight",
			Help:        "Permits currently delivered and not yet returned.",
			ConstLabels: labels,
		}),
		reentrant: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gate_runs_reentrant_total",
			Help:        "Total gated runs that reused an already held permit.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		c.minted,
		c.returned,
		c.orphans,
		c.leases,
		c.canceled,
		c.panics,
		c.inFlight,
		c.reentrant,
	)

	return c
}

// Hooks returns a [gate.Hooks] feeding this collector; pass it to
// [gate.WithHooks].
func (c *Collector) Hooks() gate.Hooks {
	return gate.Hooks{
		OnPermitMinted:    func(uint64) { c.minted.Inc() },
		OnPermitDelivered: func(uint64) { c.inFlight.Inc() },
		OnPermitReturned: func(uint64) {
			c.returned.Inc()
			c.inFlight.Dec()
		},
		OnOrphanRecovered: func(uint64) {
			c.orphans.Inc()
			c.inFlight.Dec()
		},
		OnLeaseExpired: func(uint64) {
			c.leases.Inc()
			c.inFlight.Dec()
		},
		OnRunCanceled:  func() { c.canceled.Inc() },
		OnRunRecovered: func(error) { c.panics.Inc() },
		OnRunReentrant: func(uint64) { c.reentrant.Inc() },
	}
}
