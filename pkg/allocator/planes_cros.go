//go:build cros_gralloc

package allocator

import (
	"github.com/T3-Labs/camera-hal/pkg/format"
	"github.com/T3-Labs/camera-hal/pkg/framebuffer"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
)

// cros_gralloc build: the platform allocator is known to emit cros-style
// vendor handles, whose per-plane offsets and sizes are authoritative.
// This assumption is fixed at build time because the handle layout is not
// discoverable at runtime.
const planeLayoutName = "cros"

func (s *Session) resolvePlanes(_ format.PixelFormat, _, _ uint32, handle *gralloc.BufferHandle, fd *framebuffer.SharedFD) ([]framebuffer.Plane, error) {
	return vendorPlanes(handle, fd)
}
