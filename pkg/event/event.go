// Package event provides a typed, in-process event dispatcher.
//
// A Target maps event names to ordered listener lists. Listeners run in the
// order they were added, and the three firing methods differ only in how
// they treat Deferred listeners:
//
//	Fire       waits for each deferred listener before invoking the next
//	FireAsync  invokes everything, then waits for all deferred listeners
//	FireSync   invokes everything and never waits
//
// Usage:
//
//	target := event.New[Order]()
//
//	audit := event.Func(func(ctx context.Context, o Order) error {
//	    return auditLog.Append(o.ID)
//	})
//	mail := event.AsyncFunc(func(ctx context.Context, o Order) error {
//	    return mailer.SendReceipt(ctx, o)
//	})
//
//	target.AddListener("order.paid", audit)
//	target.AddListener("order.paid", mail)
//
//	if err := target.Fire(ctx, "order.paid", order); err != nil {
//	    // the first listener failure, wrapped in *event.ListenerError
//	}
package event

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/eventtarget/pkg/logger"
)

// Target is an event dispatcher whose payload type T is fixed per instance.
// The payload is passed to every listener unmodified.
type Target[T any] struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener[T]
	opts      options
}

// New creates an empty Target.
func New[T any](opts ...Option) *Target[T] {
	o := options{exec: goExecutor}
	for _, opt := range opts {
		opt(&o)
	}
	return &Target[T]{
		listeners: map[string][]*Listener[T]{},
		opts:      o,
	}
}

// AddListener appends l to the listeners of event. Adding the same listener
// twice registers two independent occurrences.
func (t *Target[T]) AddListener(event string, l *Listener[T]) {
	if l == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners[event] = append(t.listeners[event], l)
}

// RemoveListener removes the first occurrence of l from event. Unknown
// events and absent listeners are ignored.
func (t *Target[T]) RemoveListener(event string, l *Listener[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ls, ok := t.listeners[event]
	if !ok {
		return
	}
	if i := slices.Index(ls, l); i >= 0 {
		t.listeners[event] = slices.Delete(ls, i, i+1)
	}
}

// Len returns the number of listener occurrences registered for event.
func (t *Target[T]) Len(event string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners[event])
}

// Has reports whether event has ever had a listener added. An event whose
// listeners were all removed is still present, with Len 0.
func (t *Target[T]) Has(event string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.listeners[event]
	return ok
}

// Events returns the registered event names in sorted order.
func (t *Target[T]) Events() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.listeners))
}

// Fire invokes the listeners of event in order. After each Deferred
// listener it waits for the returned Future to settle before moving on, so
// effects complete in registration order.
//
// The first failure stops the dispatch and is returned as a
// *ListenerError. If ctx ends while waiting, the ctx error is returned and
// the remaining listeners are not invoked.
func (t *Target[T]) Fire(ctx context.Context, event string, details T) error {
	ls := t.begin(ctx, event, ModeSequential)

	for i, l := range ls {
		start := time.Now()
		f, err := l.invoke(ctx, t.opts.exec, details)
		if err == nil && f != nil {
			err = f.Wait(ctx)
		}
		t.settled(event, ModeSequential, l.kind, start, err)
		if err != nil {
			return &ListenerError{Event: event, Index: i, Mode: ModeSequential, Err: err}
		}
	}
	return nil
}

// FireAsync invokes every listener of event back to back without waiting,
// then waits until all collected Futures have settled.
//
// A synchronous failure stops further invocations and is returned at once.
// The first rejection is returned as soon as it is observed. In both cases
// the context handed to the outstanding listeners is cancelled and their
// Futures are abandoned.
func (t *Target[T]) FireAsync(ctx context.Context, event string, details T) error {
	ls := t.begin(ctx, event, ModeConcurrent)
	if len(ls) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for i, l := range ls {
		start := time.Now()
		f, err := l.invoke(gctx, t.opts.exec, details)
		if err != nil {
			t.settled(event, ModeConcurrent, l.kind, start, err)
			return &ListenerError{Event: event, Index: i, Mode: ModeConcurrent, Err: err}
		}
		if f == nil {
			t.settled(event, ModeConcurrent, l.kind, start, nil)
			continue
		}
		g.Go(func() error {
			err := f.Wait(gctx)
			t.settled(event, ModeConcurrent, l.kind, start, err)
			if err != nil {
				return &ListenerError{Event: event, Index: i, Mode: ModeConcurrent, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// FireSync invokes every listener of event in order and returns without
// waiting for any Future. Rejections of deferred listeners are never
// reported to the caller. Deferred listeners receive a context that is not
// cancelled when ctx is.
//
// Only use FireSync when the caller does not depend on deferred effects.
func (t *Target[T]) FireSync(ctx context.Context, event string, details T) error {
	ls := t.begin(ctx, event, ModeForget)
	if len(ls) == 0 {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for i, l := range ls {
		lctx := ctx
		if l.kind == Deferred {
			lctx = detached
		}

		start := time.Now()
		f, err := l.invoke(lctx, t.opts.exec, details)
		if err != nil {
			t.settled(event, ModeForget, l.kind, start, err)
			return &ListenerError{Event: event, Index: i, Mode: ModeForget, Err: err}
		}
		if f == nil {
			t.settled(event, ModeForget, l.kind, start, nil)
			continue
		}
		t.watch(event, ModeForget, l.kind, start, f)
	}
	return nil
}

// begin snapshots the listeners of event so that registrations made while
// firing do not affect the running dispatch.
func (t *Target[T]) begin(ctx context.Context, event string, mode Mode) []*Listener[T] {
	t.mu.RLock()
	ls := slices.Clone(t.listeners[event])
	t.mu.RUnlock()

	if len(ls) == 0 {
		return nil
	}

	t.logger(ctx).Debug("event fired", "event", event, "mode", mode.String(), "listeners", len(ls))
	if t.opts.observer != nil {
		t.opts.observer.Fired(event, mode, len(ls))
	}
	return ls
}

func (t *Target[T]) settled(event string, mode Mode, kind Kind, start time.Time, err error) {
	if t.opts.observer != nil {
		t.opts.observer.ListenerSettled(event, mode, kind, time.Since(start), err)
	}
}

// watch reports a future nobody waits on once it settles.
func (t *Target[T]) watch(event string, mode Mode, kind Kind, start time.Time, f *Future) {
	if t.opts.observer == nil {
		return
	}
	go func() {
		<-f.Done()
		t.settled(event, mode, kind, start, f.Err())
	}()
}

func (t *Target[T]) logger(ctx context.Context) *slog.Logger {
	if t.opts.log != nil {
		return t.opts.log
	}
	return logger.WithCtx(ctx)
}
