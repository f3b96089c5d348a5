// Package workerpool provides a bounded goroutine pool for running the
// bodies of deferred listeners.
//
// By default an event.Target starts one goroutine per deferred invocation.
// Plugging a Pool in caps how many listener bodies run at once:
//
//	pool := workerpool.New(8)
//	defer pool.Shutdown()
//
//	target := event.New[Order](event.WithExecutor(pool))
//
// A deferred listener that fires events and waits on them from inside a
// pool worker needs a spare worker to make progress; size the pool for the
// deepest such chain.
package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/eventtarget/pkg/logger"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	size    int
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	closeCh chan struct{}
}

// New creates a Pool with the given number of workers.
// size must be > 0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		size: size,
		// Buffer equal to 2× the worker count so bursts can be absorbed.
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Submit enqueues task without blocking.
//   - Returns ErrPoolFull if the task queue is at capacity.
//   - Returns ErrPoolClosed if Shutdown has been called.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait is like Submit but blocks until a slot is available or the
// pool is closed.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-p.closeCh:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Execute runs task on the pool, waiting for queue space.
// It lets a Pool serve as an event.Executor.
func (p *Pool) Execute(task func()) error {
	return p.SubmitWait(task)
}

// Shutdown stops accepting new tasks, waits for queued and in-flight tasks
// to finish, and releases all workers. It is safe to call multiple times.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		// Wake SubmitWait callers blocked on a full queue, then wait for
		// every submitter to leave before closing the channel.
		close(p.closeCh)
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// worker drains the task channel until it is closed.
func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

// safeRun executes task, recovering from panics so a bad task doesn't kill
// the worker goroutine.
func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}
