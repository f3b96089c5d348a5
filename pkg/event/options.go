package event

import (
	"log/slog"
	"time"
)

// Mode identifies the firing strategy in logs, errors and metrics.
type Mode int

const (
	// ModeSequential waits on each deferred listener before the next (Fire).
	ModeSequential Mode = iota
	// ModeConcurrent issues every listener and then waits on all (FireAsync).
	ModeConcurrent
	// ModeForget never waits (FireSync).
	ModeForget
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeConcurrent:
		return "concurrent"
	case ModeForget:
		return "forget"
	default:
		return "unknown"
	}
}

// Executor runs the bodies of AsyncFunc listeners.
// *workerpool.Pool satisfies it.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(task func()) error

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) error { return f(task) }

// goExecutor starts one goroutine per task.
var goExecutor = ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

// Observer receives dispatch notifications. Implementations must be safe
// for concurrent use; ListenerSettled may be called from any goroutine.
type Observer interface {
	Fired(event string, mode Mode, listeners int)
	ListenerSettled(event string, mode Mode, kind Kind, elapsed time.Duration, err error)
}

// Option configures a Target.
type Option func(*options)

type options struct {
	exec     Executor
	observer Observer
	log      *slog.Logger
}

// WithExecutor sets where AsyncFunc bodies run. The default starts a
// goroutine per invocation, so concurrency is unbounded.
func WithExecutor(e Executor) Option {
	return func(o *options) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithObserver attaches an Observer, e.g. metrics.NewObserver().
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger overrides the logger used for debug output. When unset the
// logger carried by the firing context is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}
