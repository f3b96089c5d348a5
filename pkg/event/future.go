package event

import (
	"context"
	"sync"
)

// Future is a deferred result produced by a Deferred listener.
// It settles exactly once, either with a nil error (resolved) or a
// non-nil error (rejected).
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns an unsettled Future together with the function that
// settles it. Only the first call to settle has any effect.
func NewFuture() (*Future, func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.settle
}

// Resolved returns a Future that is already settled with err.
func Resolved(err error) *Future {
	f, settle := NewFuture()
	settle(err)
	return f
}

func (f *Future) settle(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the rejection reason. It is nil while the future is pending
// and nil after a successful resolution.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx ends, whichever comes first.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		// Prefer the settled outcome if both are ready.
		select {
		case <-f.done:
			return f.err
		default:
		}
		return ctx.Err()
	}
}
