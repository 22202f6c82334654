//go:build linux

package gralloc

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/T3-Labs/camera-hal/pkg/logger"
)

// MemfdAllocator is an in-process Allocator that backs every buffer with a
// single anonymous memfd. It stands in for the platform allocator in tests
// and in the alloc-probe tool; it is not a gralloc replacement.
//
// Unlike the real platform allocator, MemfdAllocator is documented safe
// for concurrent use.
type MemfdAllocator struct {
	// SizeFor computes the total byte size of a buffer. Callers normally
	// wire this to the pixel-format table. Required.
	SizeFor func(width, height, formatCode uint32) (uint32, error)

	// CrosLayout, when set, makes Allocate emit cros vendor handles with
	// the geometry it returns instead of bare handles.
	CrosLayout func(width, height, formatCode uint32) *CrosHandle

	mu       sync.Mutex
	nextID   uint64
	live     map[*BufferHandle]struct{}
	failNext Status
	nullNext bool
}

// FailNext makes the next Allocate call return the given non-OK status.
func (a *MemfdAllocator) FailNext(status Status) {
	a.mu.Lock()
	a.failNext = status
	a.mu.Unlock()
}

// NullHandleNext makes the next Allocate call report success with a nil
// handle, emulating a broken platform contract.
func (a *MemfdAllocator) NullHandleNext() {
	a.mu.Lock()
	a.nullNext = true
	a.mu.Unlock()
}

// Live returns the number of handles allocated and not yet freed.
func (a *MemfdAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

func (a *MemfdAllocator) Allocate(width, height, formatCode, layerCount uint32, usage Usage, tag string) (*BufferHandle, uint32, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failNext != StatusOK {
		status := a.failNext
		a.failNext = StatusOK
		return nil, 0, status
	}
	if a.nullNext {
		a.nullNext = false
		return nil, 0, StatusOK
	}

	size, err := a.SizeFor(width, height, formatCode)
	if err != nil {
		logger.Log.Errorw("memfd allocator: cannot size buffer",
			"width", width, "height", height, "format", formatCode, "error", err)
		return nil, 0, Status(-22) // EINVAL-like refusal
	}

	fd, err := unix.MemfdCreate(fmt.Sprintf("%s-%d", tag, a.nextID), unix.MFD_CLOEXEC)
	if err != nil {
		logger.Log.Errorw("memfd allocator: memfd_create failed", "error", err)
		return nil, 0, Status(-12) // ENOMEM-like refusal
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		logger.Log.Errorw("memfd allocator: ftruncate failed", "size", size, "error", err)
		return nil, 0, Status(-12)
	}

	a.nextID++
	var handle *BufferHandle
	if a.CrosLayout != nil {
		c := a.CrosLayout(width, height, formatCode)
		c.ID = a.nextID
		handle = c.Encode([]int{fd})
	} else {
		handle = &BufferHandle{Fds: []int{fd}}
	}

	if a.live == nil {
		a.live = make(map[*BufferHandle]struct{})
	}
	a.live[handle] = struct{}{}
	return handle, width, StatusOK
}

func (a *MemfdAllocator) Free(handle *BufferHandle) Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.live[handle]; !ok {
		return Status(-9) // EBADF-like: unknown or already-freed handle
	}
	delete(a.live, handle)

	status := StatusOK
	for _, fd := range handle.Fds {
		if err := unix.Close(fd); err != nil {
			logger.Log.Errorw("memfd allocator: close failed", "fd", fd, "error", err)
			status = Status(-9)
		}
	}
	return status
}
