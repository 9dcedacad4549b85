package gate

// Forward moves exactly one value from in to out on its own goroutine and
// returns a cancellation handle. The handle closes with no value when the
// transfer completed normally; it emits a single signal before closing when
// the transfer was cut short on either side:
//
//   - in closed before producing a value: out is closed so downstream
//     consumers stop waiting.
//   - out closed before delivery: in is closed so the upstream producer
//     stops computing.
//   - a foreign value already occupies out: the transfer aborts rather than
//     overwriting.
//
// Pipes compose: the out of one Forward may be the in of another, and both
// delivery and closure propagate transitively through the chain. This is
// how "I stopped listening for the result" becomes "stop computing the
// result" without shared mutable flags.
func Forward[T any](in, out *Queue[T]) *Queue[struct{}] {
	sig := NewQueue[struct{}](1)

	go func() {
		canceled := func() {
			sig.TrySend(struct{}{})
			sig.Close()
		}

		var v T

		select {
		case v = <-in.ch:
		case <-in.done:
			// A value may have raced with the closure.
			var ok bool
			if v, ok = in.TryRecv(); !ok {
				out.Close()
				canceled()
				return
			}
		case <-out.done:
			in.Close()
			canceled()
			return
		}

		// Misuse guard: someone else wrote to out first. Abort instead of
		// queueing behind a value that was never ours.
		if cap(out.ch) > 0 && len(out.ch) == cap(out.ch) {
			in.Close()
			canceled()
			return
		}

		select {
		case out.ch <- v:
			out.Close()
			sig.Close()
		case <-out.done:
			in.Close()
			canceled()
		}
	}()

	return sig
}
