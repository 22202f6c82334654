package caps

import (
	"fmt"

	"github.com/T3-Labs/camera-hal/pkg/format"
)

// Platform pixel-format codes as the HAL hands them to the allocator.
const (
	HalPixelFormatRGBA8888     uint32 = 1
	HalPixelFormatRGB888       uint32 = 3
	HalPixelFormatYCrCb420SP   uint32 = 0x11
	HalPixelFormatYCbCr422I    uint32 = 0x14
	HalPixelFormatBlob         uint32 = 0x21
	HalPixelFormatImplDefined  uint32 = 0x22
	HalPixelFormatYCbCr420_888 uint32 = 0x23
	HalPixelFormatYV12         uint32 = 0x32315659
)

// Capabilities maps the platform's integer pixel-format codes to the
// semantic pixel formats the imaging pipeline works with. The mapping is
// fixed at construction; lookups never mutate it.
type Capabilities struct {
	formats map[uint32]format.PixelFormat
}

// New builds Capabilities from an explicit code-to-format mapping.
func New(mapping map[uint32]format.PixelFormat) *Capabilities {
	formats := make(map[uint32]format.PixelFormat, len(mapping))
	for code, f := range mapping {
		formats[code] = f
	}
	return &Capabilities{formats: formats}
}

// NewFromFourccs builds Capabilities from config-style entries where the
// semantic format is a fourcc string.
func NewFromFourccs(mapping map[uint32]string) (*Capabilities, error) {
	formats := make(map[uint32]format.PixelFormat, len(mapping))
	for code, fourcc := range mapping {
		f, err := format.Parse(fourcc)
		if err != nil {
			return nil, fmt.Errorf("format code %#x: %w", code, err)
		}
		if _, ok := format.Lookup(f); !ok {
			return nil, fmt.Errorf("format code %#x maps to unsupported format %s", code, f)
		}
		formats[code] = f
	}
	return &Capabilities{formats: formats}, nil
}

// Default returns the mapping used when the config does not override it.
// Opaque camera formats resolve to NV12, which is what the platform
// allocators this module targets emit for camera streams.
func Default() *Capabilities {
	return New(map[uint32]format.PixelFormat{
		HalPixelFormatRGBA8888:     format.XRGB8888,
		HalPixelFormatRGB888:       format.BGR888,
		HalPixelFormatYCrCb420SP:   format.NV21,
		HalPixelFormatYCbCr422I:    format.YUYV,
		HalPixelFormatImplDefined:  format.NV12,
		HalPixelFormatYCbCr420_888: format.NV12,
		HalPixelFormatYV12:         format.YVU420,
	})
}

// ToPixelFormat resolves a platform format code to its semantic pixel
// format. The mapping is expected to be total over every code a session
// will request; a miss means the session was configured wrong.
func (c *Capabilities) ToPixelFormat(code uint32) (format.PixelFormat, bool) {
	f, ok := c.formats[code]
	return f, ok
}
