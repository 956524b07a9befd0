package device

import (
	"fmt"
	"unsafe"
)

// Manager issues memory primitives against the queue it captured at
// creation. It executes the requested primitive only; pairing every Alloc
// with exactly one Free is the caller's responsibility.
type Manager struct {
	rt    Runtime
	queue Queue
}

// NewManager reads the runtime's current queue once and binds it.
func NewManager(rt Runtime) (*Manager, error) {
	q, err := rt.CurrentQueue()
	if err != nil {
		return nil, fmt.Errorf("device: get current queue: %w", err)
	}
	return &Manager{rt: rt, queue: q}, nil
}

// Queue returns the bound queue.
func (m *Manager) Queue() Queue {
	return m.queue
}

// Runtime returns the underlying runtime.
func (m *Manager) Runtime() Runtime {
	return m.rt
}

// Alloc allocates a device buffer of size bytes on the bound queue.
func (m *Manager) Alloc(size int64) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("device: invalid allocation size %d", size)
	}
	buf, err := m.rt.Alloc(m.queue, size)
	if err != nil {
		return nil, fmt.Errorf("device: alloc %d bytes: %w", size, err)
	}
	return buf, nil
}

// CopyIn copies size bytes from host memory into a device buffer.
func (m *Manager) CopyIn(dst *Buffer, src unsafe.Pointer, size int64) error {
	if size > dst.Size() {
		return fmt.Errorf("device: copy of %d bytes exceeds buffer size %d", size, dst.Size())
	}
	if err := m.rt.Memcpy(m.queue, Dev(dst), Host(src), size); err != nil {
		return fmt.Errorf("device: copy in %d bytes: %w", size, err)
	}
	return nil
}

// CopyOut copies size bytes from a device buffer into host memory.
func (m *Manager) CopyOut(dst unsafe.Pointer, src *Buffer, size int64) error {
	if size > src.Size() {
		return fmt.Errorf("device: copy of %d bytes exceeds buffer size %d", size, src.Size())
	}
	if err := m.rt.Memcpy(m.queue, Host(dst), Dev(src), size); err != nil {
		return fmt.Errorf("device: copy out %d bytes: %w", size, err)
	}
	return nil
}

// Free releases a buffer allocated on the bound queue.
func (m *Manager) Free(b *Buffer) error {
	if b.Queue() != m.queue {
		return fmt.Errorf("device: free on a different queue than allocation")
	}
	if err := m.rt.Free(m.queue, b); err != nil {
		return fmt.Errorf("device: free %d bytes: %w", b.Size(), err)
	}
	return nil
}
