package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// hostQueue is the serial in-process command stream of the host runtime.
// Its mutex serializes device operations that share the queue.
type hostQueue struct {
	mu sync.Mutex
}

// HostRuntime is the in-process reference implementation of Runtime.
// Buffers live in shared (host-addressable) memory, so resolved backend
// kernels can read and write them directly.
type HostRuntime struct {
	queue Queue

	// Memory tracking
	memoryStats struct {
		totalAllocatedBytes int64
		peakMemoryBytes     int64
		activeBuffers       int64
		mu                  sync.RWMutex
	}
}

// NewHost creates a host runtime with a single current queue.
func NewHost() *HostRuntime {
	return &HostRuntime{queue: NewQueue(&hostQueue{})}
}

// CurrentQueue returns the runtime's current queue.
func (h *HostRuntime) CurrentQueue() (Queue, error) {
	return h.queue, nil
}

// Alloc allocates a shared-memory buffer against the queue.
func (h *HostRuntime) Alloc(q Queue, size int64) (*Buffer, error) {
	hq, ok := q.Handle().(*hostQueue)
	if !ok {
		return nil, fmt.Errorf("host: invalid queue")
	}
	hq.mu.Lock()
	defer hq.mu.Unlock()

	data := make([]byte, size)
	h.trackAlloc(size)
	return NewBuffer(q, size, data, unsafe.Pointer(&data[0])), nil
}

// Memcpy performs a blocking copy between host memory and/or buffers.
func (h *HostRuntime) Memcpy(q Queue, dst, src Ptr, size int64) error {
	hq, ok := q.Handle().(*hostQueue)
	if !ok {
		return fmt.Errorf("host: invalid queue")
	}
	hq.mu.Lock()
	defer hq.mu.Unlock()

	d, err := hostBytes(dst, size)
	if err != nil {
		return err
	}
	s, err := hostBytes(src, size)
	if err != nil {
		return err
	}
	copy(d, s)
	return nil
}

// Free releases a buffer allocated against the queue.
func (h *HostRuntime) Free(q Queue, b *Buffer) error {
	hq, ok := q.Handle().(*hostQueue)
	if !ok {
		return fmt.Errorf("host: invalid queue")
	}
	hq.mu.Lock()
	defer hq.mu.Unlock()

	if _, ok := b.Handle().([]byte); !ok {
		return fmt.Errorf("host: free of foreign buffer")
	}
	h.trackFree(b.Size())
	return nil
}

// Name returns the runtime name.
func (h *HostRuntime) Name() string {
	return "host"
}

// MemoryStats reports allocated bytes, peak usage, and active buffers.
func (h *HostRuntime) MemoryStats() (allocated, peak, active int64) {
	h.memoryStats.mu.RLock()
	defer h.memoryStats.mu.RUnlock()
	return h.memoryStats.totalAllocatedBytes, h.memoryStats.peakMemoryBytes,
		h.memoryStats.activeBuffers
}

func (h *HostRuntime) trackAlloc(size int64) {
	h.memoryStats.mu.Lock()
	defer h.memoryStats.mu.Unlock()

	h.memoryStats.totalAllocatedBytes += size
	h.memoryStats.activeBuffers++
	if h.memoryStats.totalAllocatedBytes > h.memoryStats.peakMemoryBytes {
		h.memoryStats.peakMemoryBytes = h.memoryStats.totalAllocatedBytes
	}
}

func (h *HostRuntime) trackFree(size int64) {
	h.memoryStats.mu.Lock()
	defer h.memoryStats.mu.Unlock()

	if h.memoryStats.totalAllocatedBytes >= size {
		h.memoryStats.totalAllocatedBytes -= size
	}
	h.memoryStats.activeBuffers--
}

// hostBytes views one side of a copy as a byte slice of length size.
func hostBytes(p Ptr, size int64) ([]byte, error) {
	if p.IsDevice() {
		data, ok := p.Buffer().Handle().([]byte)
		if !ok {
			return nil, fmt.Errorf("host: foreign buffer in copy")
		}
		if size > int64(len(data)) {
			return nil, fmt.Errorf("host: copy of %d bytes exceeds buffer size %d", size, len(data))
		}
		return data[:size], nil
	}
	if p.HostPtr() == nil {
		return nil, fmt.Errorf("host: nil host pointer in copy")
	}
	return unsafe.Slice((*byte)(p.HostPtr()), size), nil
}
