package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/eventtarget/pkg/event"
	"github.com/shashiranjanraj/eventtarget/pkg/testkit"
	"github.com/shashiranjanraj/eventtarget/pkg/workerpool"
)

type details struct{ ID int }

// push returns an Immediate listener that records label.
func push(r *testkit.Recorder, label string) *event.Listener[details] {
	return event.Func(func(context.Context, details) error {
		r.Push(label)
		return nil
	})
}

// pushAfter returns a Deferred listener that records label after d.
func pushAfter(r *testkit.Recorder, label string, d time.Duration) *event.Listener[details] {
	return event.AsyncFunc(func(ctx context.Context, _ details) error {
		if err := testkit.WaitFor(ctx, d); err != nil {
			return err
		}
		r.Push(label)
		return nil
	})
}

func countAfter(n *atomic.Int32, d time.Duration) *event.Listener[details] {
	return event.AsyncFunc(func(ctx context.Context, _ details) error {
		if err := testkit.WaitFor(ctx, d); err != nil {
			return err
		}
		n.Add(1)
		return nil
	})
}

// ─── Registration ─────────────────────────────────────────────────────────────

func TestNew_Empty(t *testing.T) {
	target := event.New[details]()
	assert.Empty(t, target.Events())
	assert.False(t, target.Has("load"))
	assert.Equal(t, 0, target.Len("load"))
}

func TestAddListener_SyncAndAsync(t *testing.T) {
	target := event.New[details]()

	target.AddListener("load", event.Func(func(context.Context, details) error { return nil }))
	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error { return nil }))

	assert.Equal(t, []string{"load"}, target.Events())
	assert.Equal(t, 2, target.Len("load"))
}

func TestAddListener_NilIgnored(t *testing.T) {
	target := event.New[details]()
	target.AddListener("load", nil)
	assert.False(t, target.Has("load"))
}

func TestRemoveListener_Precision(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	foo := push(&r, "foo")
	bar := push(&r, "bar")
	target.AddListener("load", foo)
	target.AddListener("load", bar)

	target.RemoveListener("load", foo)
	assert.Equal(t, 1, target.Len("load"))

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "bar")

	target.RemoveListener("load", bar)
	assert.Equal(t, 0, target.Len("load"))
	assert.True(t, target.Has("load"), "emptied event keeps its key")
}

func TestRemoveListener_PreservesOrderOfRest(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	a, b, c := push(&r, "a"), push(&r, "b"), push(&r, "c")
	target.AddListener("load", a)
	target.AddListener("load", b)
	target.AddListener("load", c)
	target.RemoveListener("load", b)

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "a", "c")
}

func TestRemoveListener_AbsentIsNoop(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	kept := push(&r, "kept")
	never := push(&r, "never")
	target.AddListener("load", kept)

	assert.NotPanics(t, func() {
		target.RemoveListener("load", never)
		target.RemoveListener("unknown", never)
		target.RemoveListener("load", nil)
	})

	assert.Equal(t, 1, target.Len("load"))
	assert.False(t, target.Has("unknown"), "removal must not create keys")
}

func TestDuplicateRegistration(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	l := push(&r, "dup")
	target.AddListener("load", l)
	target.AddListener("load", l)

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "dup", "dup")

	target.RemoveListener("load", l)
	assert.Equal(t, 1, target.Len("load"))

	r.Reset()
	require.NoError(t, target.Fire(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "dup")
}

// ─── Firing: shared behaviour ─────────────────────────────────────────────────

func TestFire_UnregisteredEvent(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder
	target.AddListener("other", push(&r, "other"))

	ctx := context.Background()
	assert.NoError(t, target.Fire(ctx, "load", details{}))
	assert.NoError(t, target.FireAsync(ctx, "load", details{}))
	assert.NoError(t, target.FireSync(ctx, "load", details{}))

	assert.Zero(t, r.Len())
	assert.False(t, target.Has("load"))
}

func TestFire_PayloadPassedThrough(t *testing.T) {
	target := event.New[*details]()
	payload := &details{ID: 7}

	var seen []*details
	record := func(_ context.Context, d *details) error {
		seen = append(seen, d)
		return nil
	}
	target.AddListener("load", event.Func(record))
	target.AddListener("load", event.Func(record))

	require.NoError(t, target.Fire(context.Background(), "load", payload))
	require.Len(t, seen, 2)
	assert.Same(t, payload, seen[0])
	assert.Same(t, payload, seen[1])
}

// ─── FireSync ─────────────────────────────────────────────────────────────────

func TestFireSync_InOrder(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	target.AddListener("load", push(&r, "first"))
	target.AddListener("load", push(&r, "second"))
	target.AddListener("load", push(&r, "third"))

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "first", "second", "third")
}

func TestFireSync_DoesNotWaitForDeferred(t *testing.T) {
	target := event.New[details]()
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		target.AddListener("load", countAfter(&count, 100*time.Millisecond))
	}

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	assert.NotEqual(t, int32(3), count.Load())

	// The effects still happen, just not before FireSync returns.
	assert.Eventually(t, func() bool { return count.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestFireSync_RejectionNotObserved(t *testing.T) {
	target := event.New[details]()
	rejected := make(chan struct{})

	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error {
		defer close(rejected)
		return errors.New("rejected")
	}))

	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	<-rejected
}

func TestFireSync_DeferredContextDetached(t *testing.T) {
	target := event.New[details]()
	result := make(chan error, 1)

	target.AddListener("load", event.AsyncFunc(func(ctx context.Context, _ details) error {
		err := testkit.WaitFor(ctx, 50*time.Millisecond)
		result <- err
		return err
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, target.FireSync(ctx, "load", details{}))
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err, "deferred listener should outlive the caller's context")
	case <-time.After(2 * time.Second):
		t.Fatal("deferred listener never finished")
	}
}

func TestFireSync_SyncErrorAborts(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder
	boom := errors.New("boom")

	target.AddListener("load", push(&r, "a"))
	target.AddListener("load", event.Func(func(context.Context, details) error { return boom }))
	target.AddListener("load", push(&r, "c"))

	err := target.FireSync(context.Background(), "load", details{})
	require.ErrorIs(t, err, boom)

	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "load", le.Event)
	assert.Equal(t, 1, le.Index)
	assert.Equal(t, event.ModeForget, le.Mode)

	testkit.AssertOrder(t, &r, "a")
}

// ─── Fire (sequential) ────────────────────────────────────────────────────────

func TestFire_MixedInOrder(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	target.AddListener("load", push(&r, "first"))
	target.AddListener("load", pushAfter(&r, "second", 0))
	target.AddListener("load", pushAfter(&r, "third", 0))
	target.AddListener("load", push(&r, "fourth"))

	require.NoError(t, target.Fire(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "first", "second", "third", "fourth")
}

func TestFire_AwaitsEachInTurn(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	// Decreasing delays: only sequential waiting keeps registration order.
	target.AddListener("load", pushAfter(&r, "first", 80*time.Millisecond))
	target.AddListener("load", pushAfter(&r, "second", 60*time.Millisecond))
	target.AddListener("load", pushAfter(&r, "third", 40*time.Millisecond))
	target.AddListener("load", pushAfter(&r, "fourth", 20*time.Millisecond))

	start := time.Now()
	require.NoError(t, target.Fire(context.Background(), "load", details{}))

	testkit.AssertOrder(t, &r, "first", "second", "third", "fourth")
	testkit.AssertElapsed(t, time.Since(start), 200*time.Millisecond, 2*time.Second)
}

func TestFire_RejectionStopsDispatch(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder
	boom := errors.New("boom")

	target.AddListener("load", push(&r, "a"))
	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error { return boom }))
	target.AddListener("load", push(&r, "c"))

	err := target.Fire(context.Background(), "load", details{})
	require.ErrorIs(t, err, boom)

	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 1, le.Index)
	assert.Equal(t, event.ModeSequential, le.Mode)

	testkit.AssertOrder(t, &r, "a")
}

func TestFire_PanicRejectsFuture(t *testing.T) {
	target := event.New[details]()

	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error {
		panic("listener exploded")
	}))

	err := target.Fire(context.Background(), "load", details{})

	var pe *event.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "listener exploded", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestFire_ContextBoundsWait(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error {
		time.Sleep(500 * time.Millisecond)
		return nil
	}))
	target.AddListener("load", push(&r, "never"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := target.Fire(ctx, "load", details{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, r.Len())
}

func TestFire_FutureFunc(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	f, settle := event.NewFuture()
	target.AddListener("load", event.FutureFunc(func(context.Context, details) (*event.Future, error) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			r.Push("settled")
			settle(nil)
		}()
		return f, nil
	}))
	target.AddListener("load", event.FutureFunc(func(context.Context, details) (*event.Future, error) {
		r.Push("immediate")
		return nil, nil
	}))

	require.NoError(t, target.Fire(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "settled", "immediate")
}

func TestFire_FutureFuncSyncError(t *testing.T) {
	target := event.New[details]()
	boom := errors.New("boom")

	target.AddListener("load", event.FutureFunc(func(context.Context, details) (*event.Future, error) {
		return nil, boom
	}))

	assert.ErrorIs(t, target.Fire(context.Background(), "load", details{}), boom)
}

func TestFire_SnapshotIgnoresMutationDuringDispatch(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder

	late := push(&r, "late")
	second := push(&r, "second")
	target.AddListener("load", event.Func(func(context.Context, details) error {
		r.Push("first")
		target.AddListener("load", late)
		target.RemoveListener("load", second)
		return nil
	}))
	target.AddListener("load", second)

	require.NoError(t, target.Fire(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "first", "second")
	assert.Equal(t, 2, target.Len("load"))
}

// ─── FireAsync (concurrent) ───────────────────────────────────────────────────

func TestFireAsync_WaitsForAll(t *testing.T) {
	target := event.New[details]()
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		target.AddListener("load", countAfter(&count, 200*time.Millisecond))
	}

	start := time.Now()
	require.NoError(t, target.FireAsync(context.Background(), "load", details{}))

	assert.Equal(t, int32(3), count.Load())
	// ~200ms, well below the 600ms a sequential wait would take.
	testkit.AssertElapsed(t, time.Since(start), 200*time.Millisecond, 500*time.Millisecond)
}

func TestFireAsync_InvokesInOrderWithoutWaiting(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder
	release := make(chan struct{})

	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error {
		<-release
		return nil
	}))
	target.AddListener("load", push(&r, "b"))
	target.AddListener("load", event.Func(func(context.Context, details) error {
		r.Push("c")
		close(release)
		return nil
	}))

	require.NoError(t, target.FireAsync(context.Background(), "load", details{}))
	testkit.AssertOrder(t, &r, "b", "c")
}

func TestFireAsync_FirstRejectionPropagates(t *testing.T) {
	target := event.New[details]()
	boom := errors.New("boom")
	cancelled := make(chan struct{})

	target.AddListener("load", event.AsyncFunc(func(ctx context.Context, _ details) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error {
		time.Sleep(10 * time.Millisecond)
		return boom
	}))

	err := target.FireAsync(context.Background(), "load", details{})
	require.ErrorIs(t, err, boom)

	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 1, le.Index)
	assert.Equal(t, event.ModeConcurrent, le.Mode)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling listener context was not cancelled")
	}
}

func TestFireAsync_SyncErrorAbortsRemaining(t *testing.T) {
	target := event.New[details]()
	var r testkit.Recorder
	boom := errors.New("boom")

	target.AddListener("load", push(&r, "a"))
	target.AddListener("load", event.Func(func(context.Context, details) error { return boom }))
	target.AddListener("load", push(&r, "c"))

	err := target.FireAsync(context.Background(), "load", details{})
	require.ErrorIs(t, err, boom)
	testkit.AssertOrder(t, &r, "a")
}

// ─── Executor ─────────────────────────────────────────────────────────────────

func TestWithExecutor_WorkerPoolBoundsConcurrency(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	target := event.New[details](event.WithExecutor(pool))
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		target.AddListener("load", countAfter(&count, 60*time.Millisecond))
	}

	start := time.Now()
	require.NoError(t, target.FireAsync(context.Background(), "load", details{}))

	assert.Equal(t, int32(3), count.Load())
	// A single worker serialises the bodies.
	testkit.AssertElapsed(t, time.Since(start), 180*time.Millisecond, 2*time.Second)
}

func TestWithExecutor_RejectedScheduleIsSyncError(t *testing.T) {
	pool := workerpool.New(1)
	pool.Shutdown()

	target := event.New[details](event.WithExecutor(pool))
	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error { return nil }))

	err := target.Fire(context.Background(), "load", details{})
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}

// ─── Observer ─────────────────────────────────────────────────────────────────

type recordingObserver struct {
	fired   atomic.Int32
	settled atomic.Int32
	failed  atomic.Int32
}

func (o *recordingObserver) Fired(string, event.Mode, int) { o.fired.Add(1) }

func (o *recordingObserver) ListenerSettled(_ string, _ event.Mode, _ event.Kind, _ time.Duration, err error) {
	o.settled.Add(1)
	if err != nil {
		o.failed.Add(1)
	}
}

func TestWithObserver(t *testing.T) {
	obs := &recordingObserver{}
	target := event.New[details](event.WithObserver(obs))

	target.AddListener("load", event.Func(func(context.Context, details) error { return nil }))
	target.AddListener("load", event.AsyncFunc(func(context.Context, details) error { return errors.New("x") }))

	_ = target.FireAsync(context.Background(), "load", details{})
	require.NoError(t, target.FireSync(context.Background(), "load", details{}))
	require.NoError(t, target.FireSync(context.Background(), "missing", details{}))

	assert.Equal(t, int32(2), obs.fired.Load())
	assert.Eventually(t, func() bool { return obs.settled.Load() == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return obs.failed.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestCallMock_AsListenerBodies(t *testing.T) {
	boom := errors.New("boom")
	cm := testkit.NewCallMock().
		Expect("audit", nil).
		Expect("mailer", boom)

	target := event.New[details]()
	target.AddListener("order.paid", event.Func(testkit.Listen[details](cm, "audit")))
	target.AddListener("order.paid", event.AsyncFunc(testkit.Listen[details](cm, "mailer")))

	err := target.FireAsync(context.Background(), "order.paid", details{ID: 1})
	require.ErrorIs(t, err, boom)

	cm.AssertExpectations(t)
	assert.Equal(t, 1, cm.Calls("audit"))
	cm.Mock().AssertCalled(t, "Handle", "mailer", details{ID: 1})
}
