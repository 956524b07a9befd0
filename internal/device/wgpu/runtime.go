// Package wgpu implements the device runtime over WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package wgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/nplift-ml/nplift/internal/device"
)

// Verify that Runtime implements device.Runtime.
var _ device.Runtime = (*Runtime)(nil)

// Runtime is the WebGPU implementation of device.Runtime. Device buffers
// are GPU storage buffers; copies move through mapped staging buffers.
// GPU memory is not host-addressable, so buffers expose no host pointer.
type Runtime struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	queue    *wgpu.Queue

	current     device.Queue
	adapterInfo *wgpu.AdapterInfoGo
}

// New creates a WebGPU runtime.
// Returns an error if WebGPU is not available or initialization fails.
func New() (rt *Runtime, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			rt = nil
			err = fmt.Errorf("wgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("wgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo, _ := adapter.GetInfo()

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to get queue")
	}

	return &Runtime{
		instance:    instance,
		adapter:     adapter,
		dev:         dev,
		queue:       queue,
		current:     device.NewQueue(queue),
		adapterInfo: adapterInfo,
	}, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// CurrentQueue returns the runtime's current queue.
func (r *Runtime) CurrentQueue() (device.Queue, error) {
	if r.queue == nil {
		return device.Queue{}, fmt.Errorf("wgpu: runtime released")
	}
	return r.current, nil
}

// Alloc allocates a GPU storage buffer of size bytes.
func (r *Runtime) Alloc(q device.Queue, size int64) (*device.Buffer, error) {
	if q != r.current {
		return nil, fmt.Errorf("wgpu: invalid queue")
	}

	buf := r.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  uint64(size),
	})
	if buf == nil {
		return nil, fmt.Errorf("wgpu: failed to create buffer of %d bytes", size)
	}
	return device.NewBuffer(q, size, buf, nil), nil
}

// Memcpy performs a blocking copy between host memory and/or GPU buffers.
func (r *Runtime) Memcpy(q device.Queue, dst, src device.Ptr, size int64) error {
	if q != r.current {
		return fmt.Errorf("wgpu: invalid queue")
	}

	switch {
	case dst.IsDevice() && !src.IsDevice():
		return r.upload(gpuBuffer(dst), src.HostPtr(), size)
	case !dst.IsDevice() && src.IsDevice():
		return r.readback(dst.HostPtr(), gpuBuffer(src), size)
	case dst.IsDevice() && src.IsDevice():
		return r.copyBuffer(gpuBuffer(dst), gpuBuffer(src), size)
	default:
		d := unsafe.Slice((*byte)(dst.HostPtr()), size)
		s := unsafe.Slice((*byte)(src.HostPtr()), size)
		copy(d, s)
		return nil
	}
}

// Free releases a GPU buffer.
func (r *Runtime) Free(q device.Queue, b *device.Buffer) error {
	if q != r.current {
		return fmt.Errorf("wgpu: invalid queue")
	}
	buf, ok := b.Handle().(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("wgpu: free of foreign buffer")
	}
	buf.Release()
	return nil
}

// Name returns the runtime name with adapter details.
func (r *Runtime) Name() string {
	if r.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", r.adapterInfo.Device, r.adapterInfo.Vendor)
	}
	return "WebGPU"
}

// Release releases all WebGPU resources.
// Must be called when the runtime is no longer needed.
func (r *Runtime) Release() {
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.dev != nil {
		r.dev.Release()
		r.dev = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
}

// upload copies host data into a GPU buffer through a mapped staging buffer.
func (r *Runtime) upload(dst *wgpu.Buffer, src unsafe.Pointer, size int64) error {
	staging := r.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             uint64(size),
		MappedAtCreation: wgpu.True,
	})
	if staging == nil {
		return fmt.Errorf("wgpu: failed to create staging buffer")
	}
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, uint64(size))
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mapped, unsafe.Slice((*byte)(src), size))
	staging.Unmap()

	return r.copyBuffer(dst, staging, size)
}

// readback copies GPU buffer contents to host memory through a mapped
// staging buffer.
func (r *Runtime) readback(dst unsafe.Pointer, src *wgpu.Buffer, size int64) error {
	staging := r.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  uint64(size),
	})
	if staging == nil {
		return fmt.Errorf("wgpu: failed to create staging buffer")
	}
	defer staging.Release()

	if err := r.copyBuffer(staging, src, size); err != nil {
		return err
	}

	if err := staging.MapAsync(r.dev, wgpu.MapModeRead, 0, uint64(size)); err != nil {
		return fmt.Errorf("wgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, uint64(size))
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(unsafe.Slice((*byte)(dst), size), mapped)
	staging.Unmap()

	return nil
}

// copyBuffer submits a buffer-to-buffer copy and blocks on the queue.
func (r *Runtime) copyBuffer(dst, src *wgpu.Buffer, size int64) error {
	encoder := r.dev.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, dst, 0, uint64(size))
	cmd := encoder.Finish(nil)
	r.queue.Submit(cmd)
	return nil
}

// gpuBuffer extracts the wgpu buffer from a device pointer.
func gpuBuffer(p device.Ptr) *wgpu.Buffer {
	buf, _ := p.Buffer().Handle().(*wgpu.Buffer)
	return buf
}
