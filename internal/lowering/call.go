package lowering

import (
	"unsafe"

	"github.com/nplift-ml/nplift/internal/array"
	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/device"
)

// Request is one assembled backend call: the symbol key (operation name and
// ordered element-type names) plus the fixed positional argument list.
type Request struct {
	Op        string
	TypeNames []string
	Args      []backend.Arg
}

// byteSize computes the dense byte size of an array as elements x element
// size in 64-bit arithmetic, before any overflow check is applied.
func byteSize(a *array.Array) int64 {
	return int64(a.NumElements()) * int64(a.DType().Size())
}

// stageIn allocates a device buffer for the operand, copies the operand
// data in, and registers the free with the scope.
func stageIn(sc *Scope, m *device.Manager, a *array.Array) (*device.Buffer, error) {
	size := byteSize(a)
	buf, err := m.Alloc(size)
	if err != nil {
		return nil, WrapErr(DeviceResourceFailure, err, "stage operand to device")
	}
	sc.Defer(func() error { return m.Free(buf) })

	if err := m.CopyIn(buf, a.Ptr(), size); err != nil {
		return nil, WrapErr(DeviceResourceFailure, err, "stage operand to device")
	}
	return buf, nil
}

// stageOut allocates a device buffer of size bytes for a result and
// registers the free with the scope. The contents are copied back with
// unstage after the kernel ran.
func stageOut(sc *Scope, m *device.Manager, size int64) (*device.Buffer, error) {
	buf, err := m.Alloc(size)
	if err != nil {
		return nil, WrapErr(DeviceResourceFailure, err, "stage result buffer")
	}
	sc.Defer(func() error { return m.Free(buf) })
	return buf, nil
}

// unstage copies size bytes from a device buffer back to host memory.
func unstage(m *device.Manager, dst unsafe.Pointer, src *device.Buffer, size int64) error {
	if err := m.CopyOut(dst, src, size); err != nil {
		return WrapErr(DeviceResourceFailure, err, "stage result from device")
	}
	return nil
}

// devicePtr returns the call argument for a staged buffer. Shared (USM)
// memory exposes a host-visible address; other runtimes pass the opaque
// buffer handle address.
func devicePtr(b *device.Buffer) backend.Arg {
	if p := b.Ptr(); p != nil {
		return backend.PtrArg(p)
	}
	return backend.PtrArg(unsafe.Pointer(b))
}

// invokeKernel performs the direct call through the resolved kernel.
// Kernel failures are runtime failures of the compiled call.
func invokeKernel(k backend.Kernel, req *Request) error {
	if err := k(req.Args); err != nil {
		return WrapErr(DeviceResourceFailure, err, "backend call %s", req.Op)
	}
	return nil
}
