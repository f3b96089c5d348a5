package testkit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
)

// CallMock is a testify/mock-backed listener body. Every invocation is
// recorded under the listener's name, so tests can use the full testify
// expectation API:
//
//	cm := testkit.NewCallMock().
//	    Expect("audit", nil).
//	    Expect("mailer", errSMTP)
//
//	target.AddListener("order.paid", event.Func(testkit.Listen[Order](cm, "audit")))
//	target.AddListener("order.paid", event.AsyncFunc(testkit.Listen[Order](cm, "mailer")))
//	...
//	cm.AssertExpectations(t)
type CallMock struct {
	m     mock.Mock
	mu    sync.Mutex
	calls map[string]int
}

// NewCallMock returns a CallMock with no expectations.
func NewCallMock() *CallMock {
	return &CallMock{calls: map[string]int{}}
}

// Expect makes calls from the listener called name return err.
func (c *CallMock) Expect(name string, err error) *CallMock {
	c.m.On("Handle", name, mock.Anything).Return(err)
	return c
}

// Handle records the call and returns the configured error.
func (c *CallMock) Handle(name string, details any) error {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()

	args := c.m.Called(name, details)
	return args.Error(0)
}

// Calls returns how many times the listener called name ran since the last
// Reset.
func (c *CallMock) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// Reset clears call counts and testify call history. Expectations stay.
func (c *CallMock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = map[string]int{}
	c.m.Calls = nil
}

// AssertExpectations fails t unless every Expect-ed listener ran.
func (c *CallMock) AssertExpectations(t *testing.T) bool {
	t.Helper()
	return c.m.AssertExpectations(t)
}

// Mock exposes the underlying testify mock for advanced expectations.
func (c *CallMock) Mock() *mock.Mock { return &c.m }

// Listen adapts c into a listener body for payload type T, recording calls
// under name.
func Listen[T any](c *CallMock, name string) func(ctx context.Context, details T) error {
	return func(_ context.Context, details T) error {
		return c.Handle(name, details)
	}
}
