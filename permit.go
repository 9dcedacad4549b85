package gate

import (
	"strconv"
	"sync/atomic"
)

// Permit is a capability token representing the right to run one gated
// task. Permits are minted exclusively by a [Pool]; holders must call
// [Permit.Close] when done so the capacity slot re-enters circulation.
//
// A Permit owns no pool resources itself. Identity is the numeric id,
// unique and monotonically increasing for the lifetime of the owning pool.
type Permit struct {
	id      uint64
	returns chan<- uint64
	closed  atomic.Bool
}

// Close releases the permit back to its pool. It is idempotent and safe to
// call from any goroutine: exactly one invocation among concurrent closers
// notifies the pool, later calls are no-ops. Closing a permit that the pool
// already recovered is also a harmless no-op.
func (p *Permit) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	// Capacity of the return channel matches pool capacity, and at most one
	// notification is ever sent per live permit, so this never blocks.
	p.returns <- p.id
}

// ID returns the permit's numeric identity.
func (p *Permit) ID() uint64 { return p.id }

// String returns a diagnostic representation exposing the permit id.
func (p *Permit) String() string {
	return "permit#" + strconv.FormatUint(p.id, 10)
}
