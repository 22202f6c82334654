package allocator

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T3-Labs/camera-hal/pkg/gralloc"
)

type mockAllocator struct {
	AllocateFunc func(width, height, formatCode, layerCount uint32, usage gralloc.Usage, tag string) (*gralloc.BufferHandle, uint32, gralloc.Status)
	FreeFunc     func(*gralloc.BufferHandle) gralloc.Status

	allocations int
	freed       []*gralloc.BufferHandle
}

func (m *mockAllocator) Allocate(width, height, formatCode, layerCount uint32, usage gralloc.Usage, tag string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
	m.allocations++
	if m.AllocateFunc != nil {
		return m.AllocateFunc(width, height, formatCode, layerCount, usage, tag)
	}
	return nil, 0, gralloc.Status(-38)
}

func (m *mockAllocator) Free(handle *gralloc.BufferHandle) gralloc.Status {
	m.freed = append(m.freed, handle)
	if m.FreeFunc != nil {
		return m.FreeFunc(handle)
	}
	return gralloc.StatusOK
}

// tempHandle builds a handle whose first fd is a real descriptor, so the
// session can duplicate it the way it would a dma-buf fd.
func tempHandle(t *testing.T, size int64) *gralloc.BufferHandle {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "buffer-*")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.Truncate(size))

	return &gralloc.BufferHandle{Fds: []int{int(f.Fd())}}
}

func okAllocator(t *testing.T, size int64) *mockAllocator {
	return &mockAllocator{
		AllocateFunc: func(_, _, _, layerCount uint32, _ gralloc.Usage, _ string) (*gralloc.BufferHandle, uint32, gralloc.Status) {
			assert.Equal(t, uint32(1), layerCount)
			return tempHandle(t, size), 640, gralloc.StatusOK
		},
	}
}
