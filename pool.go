package gate

import (
	"context"
	"sync"
	"time"
	"weak"
)

// Default pacing of starvation rescans.
const defaultScavengeInterval = 100 * time.Millisecond

// record tracks a minted permit without keeping it alive, so the pool can
// tell a permit that was closed from one whose holder dropped it.
type record struct {
	ref       weak.Pointer[Permit]
	delivered time.Time
	inFlight  bool
}

// Pool owns a fixed-capacity supply of permits and hands them out one at a
// time through a rendezvous queue. Capacity never changes after creation;
// every permit eventually re-enters circulation, either through an explicit
// [Permit.Close] or through recovery once the reference is proven dead or
// its lease has run out.
//
// Pattern: Object Pool — permits are minted only by the pool's own loops,
// so a leaked reference can delay replenishment but never shrink capacity.
type Pool struct {
	name             string
	capacity         int
	hooks            Hooks
	clock            Clock
	leaseTimeout     time.Duration
	scavengeInterval time.Duration

	supply  chan *Permit
	returns chan uint64
	out     *Queue[*Permit]
	stop    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	nextID  uint64
	records map[uint64]*record

	stats poolStats
}

// Option configures a [Pool].
type Option func(*Pool)

// WithHooks sets the lifecycle hooks the pool emits diagnostics through.
func WithHooks(h Hooks) Option {
	return func(p *Pool) { p.hooks = h }
}

// WithClock sets the clock used for lease stamps and scavenge pacing.
func WithClock(c Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// WithLeaseTimeout bounds how long a delivered permit may stay out before
// the scavenger may reclaim it even though its holder is still reachable.
// Zero (the default) disables lease recovery; unreachable permits are still
// recovered through liveness tracking.
func WithLeaseTimeout(d time.Duration) Option {
	return func(p *Pool) { p.leaseTimeout = d }
}

// WithScavengeInterval sets how often a starved dispenser rescans the
// record table for recoverable permits.
func WithScavengeInterval(d time.Duration) Option {
	return func(p *Pool) { p.scavengeInterval = d }
}

// WithName sets the pool name reported in [PoolStatus].
func WithName(name string) Option {
	return func(p *Pool) { p.name = name }
}

// New creates a pool with the given capacity, mints the initial permit
// supply, and starts the replenishment and dispenser loops. It panics if
// capacity is less than one.
func New(capacity int, opts ...Option) *Pool {
	if capacity < 1 {
		panic("gate: pool capacity must be positive")
	}

	p := &Pool{
		capacity:         capacity,
		clock:            RealClock{},
		scavengeInterval: defaultScavengeInterval,
		supply:           make(chan *Permit, capacity),
		returns:          make(chan uint64, capacity),
		out:              NewQueue[*Permit](0),
		stop:             make(chan struct{}),
		records:          make(map[uint64]*record),
	}

	for _, opt := range opts {
		opt(p)
	}

	for range capacity {
		p.supply <- p.mint()
	}

	go p.replenish()
	go p.dispense()

	return p
}

// Permits returns the queue permits are handed out on. Each Recv yields one
// permit, suspending while none is available; Recv reports false once the
// pool has been stopped.
func (p *Pool) Permits() *Queue[*Permit] {
	return p.out
}

// Acquire receives one permit, honouring ctx. The caller owns the permit
// and must close it.
func (p *Pool) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case pm := <-p.out.ch:
		return pm, nil
	case <-p.out.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do acquires a permit, runs fn inline, and releases the permit when fn
// returns, so the permit cannot escape the call.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	pm, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pm.Close()

	fn()

	return nil
}

// Capacity returns the fixed number of permits the pool circulates.
func (p *Pool) Capacity() int { return p.capacity }

// Stop tears down the pool loops and closes the hand-out queue. Permits
// already delivered remain valid to close; their return notifications are
// simply no longer consumed.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.stop)
		p.out.Close()
	})
}

// mint issues a fresh permit and registers its weak record. The id counter
// and record table are only ever touched under mu.
func (p *Pool) mint() *Permit {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	pm := &Permit{id: id, returns: p.returns}
	p.records[id] = &record{ref: weak.Make(pm)}
	p.mu.Unlock()

	p.stats.minted.Add(1)
	p.hooks.emitPermitMinted(id)

	return pm
}

// replenish consumes return notifications and mints one replacement permit
// per id that still has a live record. Ids whose record is gone were
// already recovered; their close was a harmless no-op and minting again
// would overfill the pool.
func (p *Pool) replenish() {
	for {
		select {
		case id := <-p.returns:
			p.mu.Lock()
			_, live := p.records[id]
			if live {
				delete(p.records, id)
			}
			p.mu.Unlock()

			if !live {
				p.stats.lateReturns.Add(1)
				p.hooks.emitLateReturn(id)

				continue
			}

			p.stats.returned.Add(1)
			p.hooks.emitPermitReturned(id)

			// The freed slot guarantees room in the supply queue.
			p.supply <- p.mint()

		case <-p.stop:
			return
		}
	}
}

// dispense drains the supply into the hand-out queue, scavenging for
// recoverable permits whenever the supply runs dry.
func (p *Pool) dispense() {
	for {
		var pm *Permit

		select {
		case pm = <-p.supply:
		default:
			// Starved: scavenge before suspending on the next arrival.
			if pm = p.awaitSupply(); pm == nil {
				return
			}
		}

		if !p.out.Send(pm) {
			return
		}

		// The permit is now in a consumer's hands; start its lease.
		p.mu.Lock()
		if rec, ok := p.records[pm.id]; ok {
			rec.delivered = p.clock.Now()
			rec.inFlight = true
		}
		p.mu.Unlock()

		p.hooks.emitPermitDelivered(pm.id)
	}
}

// awaitSupply blocks until a permit is available, rescanning the record
// table at the scavenge interval so that permits collected or expired
// while we wait are still recovered. Returns nil when the pool stops.
func (p *Pool) awaitSupply() *Permit {
	for {
		p.scavenge()

		select {
		case pm := <-p.supply:
			return pm
		default:
		}

		t := p.clock.NewTimer(p.scavengeInterval)

		select {
		case pm := <-p.supply:
			t.Stop()
			return pm
		case <-p.stop:
			t.Stop()
			return nil
		case <-t.C():
		}
	}
}

// scavenge scans all records and treats two cases as an implicit return:
// the referent was garbage-collected without being closed (an orphan), or
// its lease expired and the CAS on its closed flag wins against any
// concurrent closer. Either way the record is removed and a replacement is
// minted, exactly as if Close had been called.
func (p *Pool) scavenge() {
	now := p.clock.Now()

	var orphans, expired []uint64

	p.mu.Lock()
	for id, rec := range p.records {
		pm := rec.ref.Value()

		switch {
		case pm == nil:
			delete(p.records, id)
			orphans = append(orphans, id)

		case p.leaseTimeout > 0 && rec.inFlight &&
			now.Sub(rec.delivered) > p.leaseTimeout &&
			pm.closed.CompareAndSwap(false, true):
			// Winning the CAS here means the holder can never notify the
			// return channel; the slot is ours to reclaim.
			delete(p.records, id)
			expired = append(expired, id)
		}
	}
	p.mu.Unlock()

	for _, id := range orphans {
		p.stats.orphans.Add(1)
		p.hooks.emitOrphanRecovered(id)
		p.supply <- p.mint()
	}

	for _, id := range expired {
		p.stats.expired.Add(1)
		p.hooks.emitLeaseExpired(id)
		p.supply <- p.mint()
	}
}
