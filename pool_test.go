package gate_test

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byte4ever/gate"
)

// acquire gets one permit or fails the test after a deadline.
func acquire(t *testing.T, pool *gate.Pool, timeout time.Duration) *gate.Permit {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pm, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() = %v, want permit", err)
	}

	return pm
}

// ---------------------------------------------------------------------------
// Capacity is never exceeded
// ---------------------------------------------------------------------------

func TestPoolCapacityNeverExceeded(t *testing.T) {
	const capacity = 3

	pool := gate.New(capacity)
	defer pool.Stop()

	permits := make([]*gate.Permit, 0, capacity)
	for range capacity {
		permits = append(permits, acquire(t, pool, time.Second))
	}

	// With all permits outstanding the next acquisition must suspend.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if pm, err := pool.Acquire(ctx); err == nil {
		t.Fatalf("Acquire() = %v beyond capacity, want deadline error", pm)
	}

	for _, pm := range permits {
		pm.Close()
	}
}

// ---------------------------------------------------------------------------
// Close replenishes exactly once; a second Close is a no-op
// ---------------------------------------------------------------------------

func TestPoolCloseReplenishesExactlyOnce(t *testing.T) {
	pool := gate.New(1)
	defer pool.Stop()

	first := acquire(t, pool, time.Second)
	first.Close()
	first.Close() // no-op

	// Exactly one replacement must enter circulation.
	second := acquire(t, pool, time.Second)
	defer second.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if pm, err := pool.Acquire(ctx); err == nil {
		t.Fatalf("Acquire() = %v, want starvation: double Close minted twice", pm)
	}
}

// ---------------------------------------------------------------------------
// Concurrent closers: one side effect
// ---------------------------------------------------------------------------

func TestPermitConcurrentClose(t *testing.T) {
	var returned atomic.Int64

	pool := gate.New(1, gate.WithHooks(gate.Hooks{
		OnPermitReturned: func(uint64) { returned.Add(1) },
	}))
	defer pool.Stop()

	pm := acquire(t, pool, time.Second)

	done := make(chan struct{})
	for range 10 {
		go func() {
			pm.Close()
			done <- struct{}{}
		}()
	}
	for range 10 {
		<-done
	}

	// Wait for the return loop to process the single notification.
	next := acquire(t, pool, time.Second)

	if got := returned.Load(); got != 1 {
		t.Fatalf("OnPermitReturned fired %d times, want 1", got)
	}

	next.Close()
}

// ---------------------------------------------------------------------------
// Permit identity
// ---------------------------------------------------------------------------

func TestPermitIdentity(t *testing.T) {
	pool := gate.New(2)
	defer pool.Stop()

	a := acquire(t, pool, time.Second)
	b := acquire(t, pool, time.Second)
	defer a.Close()
	defer b.Close()

	if a.ID() == b.ID() {
		t.Fatalf("two live permits share id %d", a.ID())
	}

	if a.String() == "" || a.String() == b.String() {
		t.Fatalf("String() = %q / %q, want distinct diagnostics", a, b)
	}
}

// ---------------------------------------------------------------------------
// Orphaned permit is recovered once the pool is starved
// ---------------------------------------------------------------------------

func TestPoolRecoversOrphanedPermit(t *testing.T) {
	var orphans atomic.Int64

	pool := gate.New(1,
		gate.WithScavengeInterval(10*time.Millisecond),
		gate.WithHooks(gate.Hooks{
			OnOrphanRecovered: func(uint64) { orphans.Add(1) },
		}),
	)
	defer pool.Stop()

	leak(t, pool)

	// Make the dropped reference collectable before the pool scavenges.
	runtime.GC()
	runtime.GC()

	pm := acquire(t, pool, 2*time.Second)
	pm.Close()

	if got := orphans.Load(); got != 1 {
		t.Fatalf("OnOrphanRecovered fired %d times, want 1", got)
	}
}

// leak acquires a permit and drops the only reference without closing it.
// Kept out of the caller's frame so the reference is dead when GC runs.
func leak(t *testing.T, pool *gate.Pool) {
	t.Helper()

	_ = acquire(t, pool, time.Second)
}

// ---------------------------------------------------------------------------
// Lease expiry reclaims a held permit; the late Close is a no-op
// ---------------------------------------------------------------------------

func TestPoolLeaseExpiryAndLateReturn(t *testing.T) {
	var expired atomic.Int64

	pool := gate.New(1,
		gate.WithLeaseTimeout(30*time.Millisecond),
		gate.WithScavengeInterval(10*time.Millisecond),
		gate.WithHooks(gate.Hooks{
			OnLeaseExpired: func(uint64) { expired.Add(1) },
		}),
	)
	defer pool.Stop()

	held := acquire(t, pool, time.Second)

	// Outlive the lease while keeping the reference alive, then starve the
	// pool so the scavenger runs.
	time.Sleep(60 * time.Millisecond)

	replacement := acquire(t, pool, 2*time.Second)

	if got := expired.Load(); got != 1 {
		t.Fatalf("OnLeaseExpired fired %d times, want 1", got)
	}

	// The original holder closing now must be a pure no-op: the scavenger
	// won the race, so no return notification is sent and nothing is
	// minted. Closing the replacement afterwards mints exactly one more.
	held.Close()
	replacement.Close()

	// Return notifications are processed in order, so once the replacement
	// for the second close is in hand, any effect of the first close would
	// already be visible in the counters.
	next := acquire(t, pool, time.Second)
	defer next.Close()

	st := pool.Status()
	if st.Returned != 1 {
		t.Fatalf("Status().Returned = %d, want 1 (reclaimed permit must not count)", st.Returned)
	}
	if st.Minted != 3 {
		t.Fatalf("Status().Minted = %d, want 3 (initial + lease replacement + close replacement)", st.Minted)
	}
}

// ---------------------------------------------------------------------------
// Acquire honours context cancellation
// ---------------------------------------------------------------------------

func TestPoolAcquireContextCanceled(t *testing.T) {
	pool := gate.New(1)
	defer pool.Stop()

	pm := acquire(t, pool, time.Second)
	defer pm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.Acquire(ctx); err != context.Canceled {
		t.Fatalf("Acquire() = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Stop closes the hand-out queue
// ---------------------------------------------------------------------------

func TestPoolStop(t *testing.T) {
	pool := gate.New(1)
	pool.Stop()
	pool.Stop() // idempotent

	if _, err := pool.Acquire(context.Background()); err != gate.ErrPoolClosed {
		t.Fatalf("Acquire() after Stop = %v, want ErrPoolClosed", err)
	}

	if _, ok := pool.Permits().Recv(); ok {
		t.Fatal("Permits().Recv() = ok after Stop, want closed")
	}
}

// ---------------------------------------------------------------------------
// Do scopes the permit to the call
// ---------------------------------------------------------------------------

func TestPoolDoReleasesPermit(t *testing.T) {
	pool := gate.New(1)
	defer pool.Stop()

	ran := false
	if err := pool.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if !ran {
		t.Fatal("Do() did not run fn")
	}

	// The permit must already be back in circulation.
	pm := acquire(t, pool, time.Second)
	pm.Close()
}

// ---------------------------------------------------------------------------
// Hook emissions over a full cycle
// ---------------------------------------------------------------------------

func TestPoolHookEmissions(t *testing.T) {
	var minted, delivered, returned atomic.Int64

	pool := gate.New(1, gate.WithHooks(gate.Hooks{
		OnPermitMinted:    func(uint64) { minted.Add(1) },
		OnPermitDelivered: func(uint64) { delivered.Add(1) },
		OnPermitReturned:  func(uint64) { returned.Add(1) },
	}))
	defer pool.Stop()

	pm := acquire(t, pool, time.Second)
	pm.Close()

	// Acquiring again proves the replacement was minted and delivered.
	next := acquire(t, pool, time.Second)
	defer next.Close()

	if got := minted.Load(); got != 2 {
		t.Fatalf("OnPermitMinted fired %d times, want 2 (initial + replacement)", got)
	}

	// Delivery hooks fire just after the hand-off completes; allow the
	// dispenser a moment to get there.
	deadline := time.Now().Add(time.Second)
	for delivered.Load() != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := delivered.Load(); got != 2 {
		t.Fatalf("OnPermitDelivered fired %d times, want 2", got)
	}
	if got := returned.Load(); got != 1 {
		t.Fatalf("OnPermitReturned fired %d times, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// Invalid capacity panics
// ---------------------------------------------------------------------------

func TestPoolInvalidCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(0) did not panic")
		}
	}()

	gate.New(0)
}

// ---------------------------------------------------------------------------
// Status snapshot
// ---------------------------------------------------------------------------

func TestPoolStatus(t *testing.T) {
	pool := gate.New(2, gate.WithName("queries"))
	defer pool.Stop()

	pm := acquire(t, pool, time.Second)
	defer pm.Close()

	st := pool.Status()

	if st.Name != "queries" {
		t.Fatalf("Status().Name = %q, want %q", st.Name, "queries")
	}
	if st.Capacity != 2 {
		t.Fatalf("Status().Capacity = %d, want 2", st.Capacity)
	}
	if st.Minted < 2 {
		t.Fatalf("Status().Minted = %d, want >= 2", st.Minted)
	}
	if st.InFlight < 1 {
		t.Fatalf("Status().InFlight = %d, want >= 1", st.InFlight)
	}
}

// ---------------------------------------------------------------------------
// Benchmarks
// ---------------------------------------------------------------------------

func BenchmarkPoolAcquireClose(b *testing.B) {
	pool := gate.New(64)
	defer pool.Stop()

	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			pm, err := pool.Acquire(ctx)
			if err != nil {
				b.Fatal(err)
			}
			pm.Close()
		}
	})
}
