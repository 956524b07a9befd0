package device

import (
	"errors"
	"sync"
)

// Verify that CountingRuntime implements Runtime.
var _ Runtime = (*CountingRuntime)(nil)

// ErrInjected is returned by a CountingRuntime with fault injection enabled.
var ErrInjected = errors.New("device: injected failure")

// CountingRuntime wraps a Runtime and counts every primitive, for verifying
// alloc/free pairing in tests. It can also inject failures after a given
// number of allocations.
type CountingRuntime struct {
	Inner Runtime

	mu       sync.Mutex
	allocs   int
	frees    int
	copies   int
	failNext int // fail the Nth allocation from now, 0 = disabled
}

// NewCounting wraps the given runtime.
func NewCounting(inner Runtime) *CountingRuntime {
	return &CountingRuntime{Inner: inner}
}

// FailAllocAfter makes the Nth allocation from now fail with ErrInjected.
func (c *CountingRuntime) FailAllocAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// Counts returns the number of allocations, frees, and copies issued.
func (c *CountingRuntime) Counts() (allocs, frees, copies int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocs, c.frees, c.copies
}

// Balanced reports whether every allocation has a matching free.
func (c *CountingRuntime) Balanced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocs == c.frees
}

// CurrentQueue returns the inner runtime's current queue.
func (c *CountingRuntime) CurrentQueue() (Queue, error) {
	return c.Inner.CurrentQueue()
}

// Alloc counts and forwards, or fails if injection is armed.
func (c *CountingRuntime) Alloc(q Queue, size int64) (*Buffer, error) {
	c.mu.Lock()
	if c.failNext > 0 {
		c.failNext--
		if c.failNext == 0 {
			c.mu.Unlock()
			return nil, ErrInjected
		}
	}
	c.allocs++
	c.mu.Unlock()
	return c.Inner.Alloc(q, size)
}

// Memcpy counts and forwards.
func (c *CountingRuntime) Memcpy(q Queue, dst, src Ptr, size int64) error {
	c.mu.Lock()
	c.copies++
	c.mu.Unlock()
	return c.Inner.Memcpy(q, dst, src, size)
}

// Free counts and forwards.
func (c *CountingRuntime) Free(q Queue, b *Buffer) error {
	c.mu.Lock()
	c.frees++
	c.mu.Unlock()
	return c.Inner.Free(q, b)
}

// Name returns the inner runtime's name.
func (c *CountingRuntime) Name() string {
	return c.Inner.Name()
}
