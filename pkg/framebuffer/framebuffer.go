package framebuffer

import (
	"sync"

	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/logger"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

// Plane describes one region of an image buffer: a shared descriptor to
// the backing memory plus the plane's byte offset and length within it.
type Plane struct {
	FD     *SharedFD
	Offset uint32
	Length uint32
}

// FrameBuffer owns one allocated platform buffer: the opaque handle, the
// resolved plane layout, and the shared descriptor the planes point into.
//
// The allocator reference is a back-reference used only to free the
// handle. It is not owned: the allocation session holding the allocator
// must outlive every FrameBuffer it produced, otherwise Release frees
// through a dangling collaborator.
type FrameBuffer struct {
	handle *gralloc.BufferHandle
	planes []Plane
	fd     *SharedFD
	alloc  gralloc.Allocator

	onRelease   func()
	releaseOnce sync.Once
}

// NewFrameBuffer wraps an allocated handle. onRelease, if non-nil, runs
// after the handle is freed (the session uses it for bookkeeping).
func NewFrameBuffer(alloc gralloc.Allocator, handle *gralloc.BufferHandle, planes []Plane, fd *SharedFD, onRelease func()) *FrameBuffer {
	return &FrameBuffer{
		handle:    handle,
		planes:    planes,
		fd:        fd,
		alloc:     alloc,
		onRelease: onRelease,
	}
}

// Handle returns the opaque platform handle. The FrameBuffer keeps
// ownership; callers must not free it.
func (b *FrameBuffer) Handle() *gralloc.BufferHandle {
	return b.handle
}

// Planes returns the plane layout, ordered by plane index.
func (b *FrameBuffer) Planes() []Plane {
	return b.planes
}

// TotalLength returns the summed byte length of all planes.
func (b *FrameBuffer) TotalLength() uint64 {
	var total uint64
	for _, p := range b.planes {
		total += uint64(p.Length)
	}
	return total
}

// Release frees the platform handle through the owning allocator, exactly
// once. A failed free is logged and counted but never propagated: buffer
// teardown runs during unwinding and must not fail loudly.
func (b *FrameBuffer) Release() {
	b.releaseOnce.Do(func() {
		if status := b.alloc.Free(b.handle); !status.OK() {
			metrics.FreeFailures.Inc()
			logger.Log.Errorw("error freeing framebuffer", "status", int32(status))
		}
		if err := b.fd.Close(); err != nil {
			logger.Log.Errorw("error closing framebuffer fd", "error", err)
		}
		if b.onRelease != nil {
			b.onRelease()
		}
	})
}
