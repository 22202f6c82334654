//go:build !cros_gralloc

package allocator

import (
	"github.com/T3-Labs/camera-hal/pkg/format"
	"github.com/T3-Labs/camera-hal/pkg/framebuffer"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
)

// Default build: the platform's handles are treated as fully opaque and
// the plane geometry is inferred from the pixel-format table. Build with
// -tags cros_gralloc on platforms whose allocator emits cros handles.
const planeLayoutName = "generic"

func (s *Session) resolvePlanes(pixelFormat format.PixelFormat, width, height uint32, _ *gralloc.BufferHandle, fd *framebuffer.SharedFD) ([]framebuffer.Plane, error) {
	return inferredPlanes(pixelFormat, width, height, fd)
}
