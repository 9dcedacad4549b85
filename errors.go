package gate

import "fmt"

// gateError is the concrete type backing all sentinel errors.
type gateError string

// Sentinel errors.
var (
	// ErrPoolClosed is returned when a permit is requested from a stopped
	// pool.
	ErrPoolClosed error = gateError("permit pool closed")
)

func (e gateError) Error() string { return string(e) }

// PanicError wraps a panic recovered from a gated function so it can be
// delivered as an ordinary error value instead of crashing the worker.
type PanicError struct {
	// Value is the value the function panicked with.
	Value any
	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Error returns the panic value followed by the captured stack.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}
