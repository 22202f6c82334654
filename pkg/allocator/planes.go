package allocator

import (
	"fmt"

	"github.com/T3-Labs/camera-hal/pkg/format"
	"github.com/T3-Labs/camera-hal/pkg/framebuffer"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/logger"
)

// inferredPlanes derives the plane layout from the pixel-format table
// alone, assuming all planes live consecutively packed in the single
// memory region behind the handle's first fd. Used when the platform's
// handles carry no native plane metadata.
func inferredPlanes(pixelFormat format.PixelFormat, width, height uint32, fd *framebuffer.SharedFD) ([]framebuffer.Plane, error) {
	info, ok := format.Lookup(pixelFormat)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, pixelFormat)
	}

	// The total fixes every running offset inside 32 bits up front.
	if _, err := info.FrameSize(width, height); err != nil {
		return nil, err
	}

	planes := make([]framebuffer.Plane, info.PlaneCount())
	var offset uint32
	for i := range planes {
		length, err := info.PlaneSize(width, height, i)
		if err != nil {
			return nil, err
		}
		planes[i] = framebuffer.Plane{FD: fd, Offset: offset, Length: length}
		offset += length
	}
	return planes, nil
}

// vendorPlanes reads the plane layout the vendor handle states, verbatim.
// Vendor geometry may include padding and alignment the format table
// cannot predict, so no packing assumption is applied. All planes still
// share the handle's first fd.
func vendorPlanes(handle *gralloc.BufferHandle, fd *framebuffer.SharedFD) ([]framebuffer.Plane, error) {
	cros, err := gralloc.DecodeCrosHandle(handle)
	if err != nil {
		// The compiled-in layout assumption does not match what the
		// platform emitted. Same class as a broken platform contract.
		logger.Log.DPanicw("vendor handle shape mismatch", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}

	logger.Log.Debugw("vendor handle decoded",
		"id", cros.ID, "width", cros.Width, "height", cros.Height,
		"format", cros.Format, "numPlanes", cros.NumPlanes)

	planes := make([]framebuffer.Plane, cros.NumPlanes)
	for i := range planes {
		logger.Log.Debugw("vendor plane",
			"index", i, "stride", cros.Strides[i],
			"offset", cros.Offsets[i], "size", cros.Sizes[i])
		planes[i] = framebuffer.Plane{
			FD:     fd,
			Offset: cros.Offsets[i],
			Length: cros.Sizes[i],
		}
	}
	return planes, nil
}
