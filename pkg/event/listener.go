package event

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Kind tells the dispatcher whether a listener completes inline or hands
// back a Future.
type Kind int

const (
	// Immediate listeners finish before their invocation returns.
	Immediate Kind = iota
	// Deferred listeners return a Future that settles later.
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Listener is a registered callback. Listeners are compared by pointer
// identity, so keep the *Listener around if you intend to remove it later.
type Listener[T any] struct {
	kind   Kind
	call   func(ctx context.Context, details T) error
	future func(ctx context.Context, details T) (*Future, error)
}

// Func wraps fn as an Immediate listener. A non-nil error from fn aborts
// the firing that invoked it.
//
//	l := event.Func(func(ctx context.Context, u User) error {
//	    return audit.Record(u)
//	})
//	target.AddListener("user.created", l)
func Func[T any](fn func(ctx context.Context, details T) error) *Listener[T] {
	return &Listener[T]{kind: Immediate, call: fn}
}

// AsyncFunc wraps fn as a Deferred listener. Every invocation schedules fn
// on the target's Executor and yields a Future that settles when fn returns.
// A panic inside fn rejects the future with a *PanicError.
func AsyncFunc[T any](fn func(ctx context.Context, details T) error) *Listener[T] {
	return &Listener[T]{kind: Deferred, call: fn}
}

// FutureFunc wraps fn as a Deferred listener that produces its own Future.
// A non-nil error is treated as a synchronous failure; a nil Future means
// the invocation completed immediately.
func FutureFunc[T any](fn func(ctx context.Context, details T) (*Future, error)) *Listener[T] {
	return &Listener[T]{kind: Deferred, future: fn}
}

// Kind reports the listener's declared capability.
func (l *Listener[T]) Kind() Kind { return l.kind }

// invoke runs the listener once. A nil Future means nothing is pending.
func (l *Listener[T]) invoke(ctx context.Context, exec Executor, details T) (*Future, error) {
	if l.future != nil {
		return l.future(ctx, details)
	}
	if l.kind == Immediate {
		return nil, l.call(ctx, details)
	}

	f, settle := NewFuture()
	err := exec.Execute(func() {
		defer func() {
			if r := recover(); r != nil {
				settle(&PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		settle(l.call(ctx, details))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule listener: %w", err)
	}
	return f, nil
}
