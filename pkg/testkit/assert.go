package testkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// AssertOrder checks that the recorder holds exactly want, in order.
func AssertOrder(t *testing.T, r *Recorder, want ...string) bool {
	t.Helper()
	return assert.Equal(t, want, r.Entries(), "listener effects out of order")
}

// AssertElapsed checks that elapsed lies within [lo, hi]. Timing checks on
// dispatch modes use generous bounds to stay stable on loaded machines.
func AssertElapsed(t *testing.T, elapsed, lo, hi time.Duration) bool {
	t.Helper()
	ok := assert.GreaterOrEqual(t, elapsed, lo, "finished too early")
	return assert.LessOrEqual(t, elapsed, hi, "finished too late") && ok
}
