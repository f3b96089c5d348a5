package event

import "fmt"

// ListenerError reports which listener failed during a firing.
// Unwrap returns the listener's own error, so errors.Is and errors.As see
// straight through it.
type ListenerError struct {
	Event string
	Index int
	Mode  Mode
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("event %q: listener %d (%s): %v", e.Event, e.Index, e.Mode, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// PanicError is the rejection reason of a Deferred listener whose body
// panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic: %v", e.Value)
}
