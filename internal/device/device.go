// Package device provides the device-memory model for the lowering layer:
// command queues, device-resident buffers, and the runtime entry points used
// to allocate, copy, and free them.
package device

import "unsafe"

// Queue is an opaque handle to a command stream on the active device.
// The "current queue" is read once per lowering and treated as valid for the
// whole buffer lifetime of that call.
type Queue struct {
	handle any
}

// NewQueue wraps a runtime-specific queue handle.
func NewQueue(handle any) Queue {
	return Queue{handle: handle}
}

// Handle returns the runtime-specific queue handle.
func (q Queue) Handle() any {
	return q.handle
}

// Buffer is a device-resident memory block with a size in bytes and the
// queue it was allocated against. It has no automatic lifetime: every
// allocation must be paired with exactly one Free on the same queue.
type Buffer struct {
	queue  Queue
	size   int64
	handle any
	ptr    unsafe.Pointer // host-visible address, nil when not mappable
}

// NewBuffer wraps a runtime-specific buffer handle.
// ptr is the host-visible address for shared/USM memory, nil otherwise.
func NewBuffer(q Queue, size int64, handle any, ptr unsafe.Pointer) *Buffer {
	return &Buffer{queue: q, size: size, handle: handle, ptr: ptr}
}

// Queue returns the queue the buffer was allocated against.
func (b *Buffer) Queue() Queue {
	return b.queue
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int64 {
	return b.size
}

// Handle returns the runtime-specific buffer handle.
func (b *Buffer) Handle() any {
	return b.handle
}

// Ptr returns the host-visible address of the buffer, or nil when the
// runtime's memory is not host-addressable.
func (b *Buffer) Ptr() unsafe.Pointer {
	return b.ptr
}

// Ptr names one side of a memcpy: either host memory or a device buffer.
// The copy direction is determined by which side is a device buffer.
type Ptr struct {
	host unsafe.Pointer
	buf  *Buffer
}

// Host wraps a host memory address.
func Host(p unsafe.Pointer) Ptr {
	return Ptr{host: p}
}

// Dev wraps a device buffer.
func Dev(b *Buffer) Ptr {
	return Ptr{buf: b}
}

// IsDevice reports whether the pointer names a device buffer.
func (p Ptr) IsDevice() bool {
	return p.buf != nil
}

// HostPtr returns the host address, nil for device pointers.
func (p Ptr) HostPtr() unsafe.Pointer {
	return p.host
}

// Buffer returns the device buffer, nil for host pointers.
func (p Ptr) Buffer() *Buffer {
	return p.buf
}

// Runtime is the device runtime consumed through its four fixed entry
// points: get current queue, allocate, blocking memcpy, and free.
// All calls are synchronous; serializing operations that share one queue is
// the runtime's responsibility.
type Runtime interface {
	// CurrentQueue returns the process-wide current command queue.
	CurrentQueue() (Queue, error)

	// Alloc allocates a device buffer of size bytes against the queue.
	Alloc(q Queue, size int64) (*Buffer, error)

	// Memcpy performs a blocking copy of size bytes between host and/or
	// device memory on the given queue.
	Memcpy(q Queue, dst, src Ptr, size int64) error

	// Free releases a buffer allocated against the queue.
	Free(q Queue, b *Buffer) error

	// Name returns the runtime name for diagnostics.
	Name() string
}
