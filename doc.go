// Package gate provides permit-based admission control for asynchronous
// tasks.
//
// The central types are Pool, a fixed-capacity supply of reusable permits
// handed out through a closable rendezvous queue, and Run, which acquires a
// permit,
// runs a function on its own goroutine, and guarantees the permit is
// returned on every path: success, error, panic, or caller cancellation.
// Permits that leak without being closed are recovered automatically once
// the pool is starved and their references are proven unreachable.
package gate
