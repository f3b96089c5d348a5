// Package demo runs the same set of slow listeners under each firing mode
// and reports how long each firing took.
package demo

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/shashiranjanraj/eventtarget/pkg/event"
	"github.com/shashiranjanraj/eventtarget/pkg/logger"
	"github.com/shashiranjanraj/eventtarget/pkg/metrics"
	"github.com/shashiranjanraj/eventtarget/pkg/workerpool"
)

// EventName is the event every demo listener is registered under.
const EventName = "demo.tick"

// Options controls a demo run.
type Options struct {
	Listeners int
	Delay     time.Duration
	Workers   int           // 0 means one goroutine per deferred listener
	Timeout   time.Duration // bound on each firing, 0 means none
}

// Tick is the payload handed to every listener.
type Tick struct {
	Mode event.Mode
	At   time.Time
}

// Result describes one firing.
type Result struct {
	Mode    event.Mode
	Elapsed time.Duration
	// Completed is how many listeners had finished when the firing returned.
	Completed int
	Err       error
}

// ParseModes maps a CLI argument to the modes it selects.
func ParseModes(s string) ([]event.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return []event.Mode{event.ModeSequential, event.ModeConcurrent, event.ModeForget}, nil
	case "sequential", "seq":
		return []event.Mode{event.ModeSequential}, nil
	case "concurrent", "async":
		return []event.Mode{event.ModeConcurrent}, nil
	case "forget", "sync":
		return []event.Mode{event.ModeForget}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want sequential, concurrent, forget or all)", s)
	}
}

// Run fires EventName once per mode and returns one Result per mode.
// A firing error is recorded in its Result; Run itself only fails when ctx
// ends.
func Run(ctx context.Context, modes []event.Mode, opts Options) ([]Result, error) {
	if opts.Listeners <= 0 {
		opts.Listeners = 1
	}

	var exec event.Executor
	if opts.Workers > 0 {
		pool := workerpool.New(opts.Workers)
		defer pool.Shutdown()
		exec = pool
	}

	results := make([]Result, 0, len(modes))
	for _, mode := range modes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, runOne(ctx, mode, exec, opts))
	}
	return results, nil
}

func runOne(ctx context.Context, mode event.Mode, exec event.Executor, opts Options) Result {
	target := event.New[Tick](
		event.WithExecutor(exec),
		event.WithObserver(metrics.NewObserver()),
	)

	var (
		done atomic.Int32
		wg   sync.WaitGroup
	)
	for i := 0; i < opts.Listeners; i++ {
		target.AddListener(EventName, event.AsyncFunc(func(ctx context.Context, t Tick) error {
			defer wg.Done()
			timer := time.NewTimer(opts.Delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
			done.Add(1)
			logger.WithCtx(ctx).Debug("demo listener finished", "listener", i, "mode", t.Mode.String())
			return nil
		}))
	}
	wg.Add(opts.Listeners)

	fireCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		fireCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tick := Tick{Mode: mode, At: time.Now()}
	start := time.Now()

	var err error
	switch mode {
	case event.ModeSequential:
		err = target.Fire(fireCtx, EventName, tick)
	case event.ModeConcurrent:
		err = target.FireAsync(fireCtx, EventName, tick)
	default:
		err = target.FireSync(fireCtx, EventName, tick)
	}

	res := Result{Mode: mode, Elapsed: time.Since(start), Completed: int(done.Load()), Err: err}

	// Let stragglers finish so the next mode starts from a quiet state.
	if err == nil {
		wg.Wait()
	}
	return res
}

// Print writes results as a table.
func Print(w io.Writer, opts Options, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "listeners: %d, delay: %s\n\n", opts.Listeners, opts.Delay)
	fmt.Fprintln(tw, "MODE\tELAPSED\tDONE ON RETURN\tERROR")
	fmt.Fprintln(tw, "----\t-------\t--------------\t-----")
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			r.Mode, r.Elapsed.Round(time.Millisecond), r.Completed, opts.Listeners, errText)
	}
	return tw.Flush()
}
