package gate

import (
	"context"
	"runtime/debug"
)

// Result carries the outcome of a gated function as a value: either the
// function's return value or the error it produced. Failures never cross
// the executor boundary as panics.
type Result[T any] struct {
	Value T
	Err   error
}

// Run acquires a permit from pool, executes fn on its own goroutine, and
// forwards the outcome to the returned single-value queue. The queue is
// returned immediately; closing it before the outcome arrives is the
// cancellation trigger and always releases the permit, even while fn keeps
// running (fn observes cancellation through its context).
//
// If ctx already holds a permit for pool — because fn was itself invoked
// under Run on the same pool — no second permit is requested, so nested
// gated calls cannot deadlock a pool they have already exhausted.
//
// Whatever happens — success, error, panic inside fn, caller cancellation,
// pool shutdown — the caller gets a value, an error, or a closed queue,
// never a silent hang, and no permit is left outstanding.
func Run[T any](ctx context.Context, pool *Pool, fn func(context.Context) (T, error)) *Queue[Result[T]] {
	res := NewQueue[Result[T]](1)

	if pm := heldPermit(ctx, pool); pm != nil {
		pool.hooks.emitRunReentrant(pm.id)

		go execute(ctx, pool, pm, fn, res, false)

		return res
	}

	go func() {
		select {
		case pm := <-pool.out.ch:
			// The caller may have closed the result queue while the permit
			// was in flight; it must go straight back instead of gating a
			// function nobody is listening to.
			if res.Closed() {
				pm.Close()
				pool.hooks.emitRunCanceled()

				return
			}

			pool.hooks.emitRunStarted(pm.id)
			execute(ctx, pool, pm, fn, res, true)

		case <-pool.out.done:
			res.TrySend(Result[T]{Err: ErrPoolClosed})
			res.Close()

		case <-ctx.Done():
			res.TrySend(Result[T]{Err: ctx.Err()})
			res.Close()

		case <-res.done:
			// Caller gave up before a permit was ever granted. Nothing ran
			// and no permit was consumed; one arriving later stays in the
			// hand-out queue for the next waiter.
			pool.hooks.emitRunCanceled()
		}
	}()

	return res
}

// execute runs fn under pm and forwards its outcome to res through a pipe,
// so that closing res propagates back as cancellation. When owned is true
// the permit was acquired for this call and is closed here on every exit
// path; a reentrant call leaves the outer call's permit alone.
func execute[T any](
	ctx context.Context,
	pool *Pool,
	pm *Permit,
	fn func(context.Context) (T, error),
	res *Queue[Result[T]],
	owned bool,
) {
	if owned {
		defer pm.Close()
		ctx = withPermit(ctx, pool, pm)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inner := NewQueue[Result[T]](1)
	sig := Forward(inner, res)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				err := &PanicError{Value: v, Stack: debug.Stack()}
				pool.hooks.emitRunRecovered(err)
				inner.Send(Result[T]{Err: err})
			}
		}()

		v, err := fn(runCtx)
		inner.Send(Result[T]{Value: v, Err: err})
	}()

	// The pipe resolves exactly once: a signal means the caller stopped
	// listening, a bare close means the outcome was delivered.
	if _, canceled := sig.Recv(); canceled {
		pool.hooks.emitRunCanceled()
	}
}
