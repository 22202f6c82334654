//go:build !cros_gralloc

package allocator

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T3-Labs/camera-hal/pkg/caps"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/memcontrol"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

func TestSessionAllocate(t *testing.T) {
	alloc := okAllocator(t, 460800)
	session := NewSession(alloc, caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, gralloc.UsageHWCameraWrite)
	require.NoError(t, err)
	require.NotNil(t, buf)

	// NV12: plane count from the format table, consecutive packing.
	planes := buf.Planes()
	require.Len(t, planes, 2)
	assert.Equal(t, uint32(0), planes[0].Offset)
	assert.Equal(t, uint32(307200), planes[0].Length)
	assert.Equal(t, uint32(307200), planes[1].Offset)
	assert.Equal(t, uint32(153600), planes[1].Length)
	assert.Same(t, planes[0].FD, planes[1].FD)

	assert.Equal(t, 1, session.Outstanding())
	buf.Release()
	assert.Equal(t, 0, session.Outstanding())
	assert.NoError(t, session.Close())
}

func TestSessionAllocateRefused(t *testing.T) {
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			return nil, 0, gralloc.Status(-12)
		},
	}
	session := NewSession(alloc, caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	assert.Nil(t, buf)
	assert.True(t, errors.Is(err, ErrAllocationRefused))

	// Nothing to leak: no handle was issued, so nothing is freed.
	assert.Empty(t, alloc.freed)
	assert.Equal(t, 0, session.Outstanding())
}

func TestSessionAllocateNullHandle(t *testing.T) {
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			return nil, 640, gralloc.StatusOK
		},
	}
	session := NewSession(alloc, caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	assert.Nil(t, buf)
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	assert.Equal(t, 0, session.Outstanding())
}

func TestSessionAllocateHandleWithoutFds(t *testing.T) {
	handle := &gralloc.BufferHandle{}
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			return handle, 640, gralloc.StatusOK
		},
	}
	session := NewSession(alloc, caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	assert.Nil(t, buf)
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	// The fd-less handle still came from the allocator and is returned.
	require.Len(t, alloc.freed, 1)
	assert.Same(t, handle, alloc.freed[0])
}

func TestSessionAllocateHandleWithoutFdsFreeFailureCounted(t *testing.T) {
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			return &gralloc.BufferHandle{}, 640, gralloc.StatusOK
		},
		FreeFunc: func(*gralloc.BufferHandle) gralloc.Status {
			return gralloc.Status(-9)
		},
	}
	session := NewSession(alloc, caps.Default())

	before := testutil.ToFloat64(metrics.FreeFailures)
	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	assert.Nil(t, buf)
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	// The failed free of the bogus handle is observed, not swallowed.
	require.Len(t, alloc.freed, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FreeFailures))
}

func TestSessionAllocateUnknownFormatCode(t *testing.T) {
	alloc := okAllocator(t, 1024)
	session := NewSession(alloc, caps.Default())

	// BLOB is deliberately unmapped in the default capabilities.
	buf, err := session.Allocate(caps.HalPixelFormatBlob, 640, 480, 0)
	assert.Nil(t, buf)
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	// The handle must not leak when the format resolution fails.
	assert.Len(t, alloc.freed, 1)
	assert.Equal(t, 0, session.Outstanding())
}

func TestSessionReleaseFreesExactHandleOnce(t *testing.T) {
	var issued *gralloc.BufferHandle
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			issued = tempHandle(t, 460800)
			return issued, 640, gralloc.StatusOK
		},
		FreeFunc: func(*gralloc.BufferHandle) gralloc.Status {
			return gralloc.Status(-5) // free failure is logged, not raised
		},
	}
	session := NewSession(alloc, caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	require.NoError(t, err)

	buf.Release()
	buf.Release()

	require.Len(t, alloc.freed, 1)
	assert.Same(t, issued, alloc.freed[0])
	assert.Equal(t, 0, session.Outstanding())
}

func TestSessionCloseWithOutstandingBuffers(t *testing.T) {
	session := NewSession(okAllocator(t, 460800), caps.Default())

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	require.NoError(t, err)

	err = session.Close()
	assert.True(t, errors.Is(err, ErrBuffersOutstanding))

	buf.Release()
	assert.NoError(t, session.Close())
}

func TestSessionBudgetRefusal(t *testing.T) {
	alloc := okAllocator(t, 460800)
	budget := memcontrol.NewBudget(memcontrol.Config{MaxBytes: 500000})
	session := NewSession(alloc, caps.Default(), WithBudget(budget))

	// First NV12 640x480 buffer takes 460800 of the 500000 byte budget.
	first, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	require.NoError(t, err)

	second, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	assert.Nil(t, second)
	assert.True(t, errors.Is(err, memcontrol.ErrBudgetExceeded))
	// The refused buffer's handle was allocated and must be freed back.
	assert.Len(t, alloc.freed, 1)

	first.Release()
	assert.Equal(t, uint64(0), budget.Stats().Used)

	third, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	require.NoError(t, err)
	third.Release()
	assert.NoError(t, session.Close())
}

func TestSessionCustomTagPassedThrough(t *testing.T) {
	var gotTag string
	alloc := &mockAllocator{
		AllocateFunc: func(_, _, _, _ uint32, _ gralloc.Usage, tag string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			gotTag = tag
			return tempHandle(t, 460800), 640, gralloc.StatusOK
		},
	}
	session := NewSession(alloc, caps.Default(), WithTag("front-camera"))

	buf, err := session.Allocate(caps.HalPixelFormatYCbCr420_888, 640, 480, 0)
	require.NoError(t, err)
	defer buf.Release()

	assert.Equal(t, "front-camera", gotTag)
}
