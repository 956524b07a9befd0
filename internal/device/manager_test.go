package device

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	rt := NewHost()
	m, err := NewManager(rt)
	require.NoError(t, err)

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf, err := m.Alloc(int64(len(src)))
	require.NoError(t, err)

	require.NoError(t, m.CopyIn(buf, unsafe.Pointer(&src[0]), int64(len(src))))

	dst := make([]byte, len(src))
	require.NoError(t, m.CopyOut(unsafe.Pointer(&dst[0]), buf, int64(len(dst))))
	assert.Equal(t, src, dst, "round trip must be byte-identical")

	require.NoError(t, m.Free(buf))
}

func TestManagerAllocInvalidSize(t *testing.T) {
	m, err := NewManager(NewHost())
	require.NoError(t, err)

	_, err = m.Alloc(0)
	assert.Error(t, err)
	_, err = m.Alloc(-8)
	assert.Error(t, err)
}

func TestManagerCopyExceedsBuffer(t *testing.T) {
	m, err := NewManager(NewHost())
	require.NoError(t, err)

	buf, err := m.Alloc(8)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Free(buf)) }()

	src := make([]byte, 16)
	assert.Error(t, m.CopyIn(buf, unsafe.Pointer(&src[0]), 16))
	assert.Error(t, m.CopyOut(unsafe.Pointer(&src[0]), buf, 16))
}

func TestManagerFreeDifferentQueue(t *testing.T) {
	m1, err := NewManager(NewHost())
	require.NoError(t, err)
	m2, err := NewManager(NewHost())
	require.NoError(t, err)

	buf, err := m1.Alloc(8)
	require.NoError(t, err)

	assert.Error(t, m2.Free(buf), "free must require the allocating queue")
	require.NoError(t, m1.Free(buf))
}

func TestHostBufferIsHostVisible(t *testing.T) {
	m, err := NewManager(NewHost())
	require.NoError(t, err)

	buf, err := m.Alloc(16)
	require.NoError(t, err)
	assert.NotNil(t, buf.Ptr(), "host runtime buffers are shared memory")
	require.NoError(t, m.Free(buf))
}

func TestHostMemoryStats(t *testing.T) {
	rt := NewHost()
	m, err := NewManager(rt)
	require.NoError(t, err)

	b1, err := m.Alloc(64)
	require.NoError(t, err)
	b2, err := m.Alloc(32)
	require.NoError(t, err)

	allocated, peak, active := rt.MemoryStats()
	assert.Equal(t, int64(96), allocated)
	assert.Equal(t, int64(96), peak)
	assert.Equal(t, int64(2), active)

	require.NoError(t, m.Free(b1))
	require.NoError(t, m.Free(b2))

	allocated, peak, active = rt.MemoryStats()
	assert.Equal(t, int64(0), allocated)
	assert.Equal(t, int64(96), peak, "peak survives frees")
	assert.Equal(t, int64(0), active)
}

func TestCountingRuntimeBalance(t *testing.T) {
	rt := NewCounting(NewHost())
	m, err := NewManager(rt)
	require.NoError(t, err)

	b1, err := m.Alloc(8)
	require.NoError(t, err)
	b2, err := m.Alloc(8)
	require.NoError(t, err)
	assert.False(t, rt.Balanced())

	require.NoError(t, m.Free(b1))
	require.NoError(t, m.Free(b2))
	assert.True(t, rt.Balanced())

	allocs, frees, _ := rt.Counts()
	assert.Equal(t, 2, allocs)
	assert.Equal(t, 2, frees)
}

func TestCountingRuntimeFailAllocAfter(t *testing.T) {
	rt := NewCounting(NewHost())
	m, err := NewManager(rt)
	require.NoError(t, err)

	rt.FailAllocAfter(2)

	b1, err := m.Alloc(8)
	require.NoError(t, err)

	_, err = m.Alloc(8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInjected)

	require.NoError(t, m.Free(b1))
	assert.True(t, rt.Balanced(), "failed alloc must not count as outstanding")
}
