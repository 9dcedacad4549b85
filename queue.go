package gate

import "sync/atomic"

// Queue is a bounded, closable hand-off queue. Unlike a raw channel it can
// be closed from the receiving side, which is the cancellation mechanism
// the rest of the package is built on: a consumer that stops listening
// closes its queue, and producers observe that through [Queue.Done] or a
// failed [Queue.Send].
//
// The zero value is not usable; create queues with [NewQueue]. All methods
// are safe for concurrent use.
type Queue[T any] struct {
	ch     chan T
	done   chan struct{}
	closed atomic.Bool
}

// NewQueue creates a queue holding at most capacity values.
// It panics if capacity is negative.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		panic("gate: negative queue capacity")
	}

	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Send delivers v, blocking until buffer space is available or the queue is
// closed. It reports whether the value was accepted.
func (q *Queue[T]) Send(v T) bool {
	if q.closed.Load() {
		return false
	}

	select {
	case q.ch <- v:
		return true
	case <-q.done:
		return false
	}
}

// TrySend delivers v without blocking. It reports whether the value was
// accepted; false means the queue is full or closed.
func (q *Queue[T]) TrySend(v T) bool {
	if q.closed.Load() {
		return false
	}

	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Recv blocks until a value is available or the queue is closed and empty.
// Values buffered before Close are still drained; ok is false only once the
// queue is closed and nothing remains.
func (q *Queue[T]) Recv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	case <-q.done:
		// Drain anything that raced with Close.
		select {
		case v := <-q.ch:
			return v, true
		default:
			var zero T
			return zero, false
		}
	}
}

// TryRecv receives without blocking. ok is false when nothing is buffered.
func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Close marks the queue closed and wakes every blocked sender and receiver.
// It is idempotent and safe to call from any goroutine.
func (q *Queue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}

// Done returns a channel that is closed when the queue is closed, for use
// in select statements that race queue closure against other events.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	return q.closed.Load()
}
