package testkit

import (
	"context"
	"time"
)

// WaitFor sleeps for d, returning early with ctx.Err() if ctx ends first.
func WaitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
