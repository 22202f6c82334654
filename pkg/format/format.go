package format

import (
	"errors"
	"fmt"
	"math"
)

// ErrSizeOverflow means the requested dimensions produce a plane or frame
// size that does not fit the 32-bit lengths buffer handles carry.
var ErrSizeOverflow = errors.New("format: size exceeds 32-bit range")

// PixelFormat identifies a pixel format by its fourcc code, matching the
// values the kernel and the platform allocator trade in.
type PixelFormat uint32

func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	NV12     = fourcc('N', 'V', '1', '2')
	NV21     = fourcc('N', 'V', '2', '1')
	YUV420   = fourcc('Y', 'U', '1', '2')
	YVU420   = fourcc('Y', 'V', '1', '2')
	YUYV     = fourcc('Y', 'U', 'Y', 'V')
	XRGB8888 = fourcc('X', 'R', '2', '4')
	BGR888   = fourcc('B', 'G', '2', '4')
)

// String renders the fourcc as its four ASCII characters.
func (f PixelFormat) String() string {
	if f == 0 {
		return "<invalid>"
	}
	return string([]byte{
		byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24),
	})
}

// Parse converts a four-character string (e.g. "NV12") into a PixelFormat.
func Parse(s string) (PixelFormat, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid fourcc %q: must be 4 characters", s)
	}
	return fourcc(s[0], s[1], s[2], s[3]), nil
}

// planeRule computes one plane's byte size from the frame dimensions.
// Width and height are divided by the subsampling factors and every
// remaining sample group takes bytesPerGroup bytes.
type planeRule struct {
	hSub, vSub    uint32
	bytesPerGroup uint32
}

func (r planeRule) size(width, height uint32) uint64 {
	return uint64(width/r.hSub) * uint64(r.bytesPerGroup) * uint64(height/r.vSub)
}

// Info describes the plane layout of a pixel format.
type Info struct {
	Format PixelFormat
	Name   string
	planes []planeRule
}

var formats = map[PixelFormat]*Info{
	NV12: {
		Format: NV12,
		Name:   "NV12",
		planes: []planeRule{{1, 1, 1}, {2, 2, 2}},
	},
	NV21: {
		Format: NV21,
		Name:   "NV21",
		planes: []planeRule{{1, 1, 1}, {2, 2, 2}},
	},
	YUV420: {
		Format: YUV420,
		Name:   "YUV420",
		planes: []planeRule{{1, 1, 1}, {2, 2, 1}, {2, 2, 1}},
	},
	YVU420: {
		Format: YVU420,
		Name:   "YVU420",
		planes: []planeRule{{1, 1, 1}, {2, 2, 1}, {2, 2, 1}},
	},
	YUYV: {
		Format: YUYV,
		Name:   "YUYV",
		planes: []planeRule{{1, 1, 2}},
	},
	XRGB8888: {
		Format: XRGB8888,
		Name:   "XRGB8888",
		planes: []planeRule{{1, 1, 4}},
	},
	BGR888: {
		Format: BGR888,
		Name:   "BGR888",
		planes: []planeRule{{1, 1, 3}},
	},
}

// Lookup returns the plane layout for f. The second result is false when
// the format is not in the table.
func Lookup(f PixelFormat) (*Info, bool) {
	info, ok := formats[f]
	return info, ok
}

// Supported lists every format in the table.
func Supported() []PixelFormat {
	out := make([]PixelFormat, 0, len(formats))
	for f := range formats {
		out = append(out, f)
	}
	return out
}

func (i *Info) PlaneCount() int {
	return len(i.planes)
}

// PlaneSize returns plane's byte size for a frame of the given dimensions.
// Dimensions whose plane size cannot be carried in a 32-bit length are
// rejected rather than silently wrapped.
func (i *Info) PlaneSize(width, height uint32, plane int) (uint32, error) {
	if plane < 0 || plane >= len(i.planes) {
		return 0, fmt.Errorf("format %s has no plane %d", i.Name, plane)
	}
	size := i.planes[plane].size(width, height)
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s %dx%d plane %d", ErrSizeOverflow, i.Name, width, height, plane)
	}
	return uint32(size), nil
}

// FrameSize returns the total byte size of all planes packed consecutively.
func (i *Info) FrameSize(width, height uint32) (uint32, error) {
	var total uint64
	for _, r := range i.planes {
		total += r.size(width, height)
	}
	if total > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s %dx%d", ErrSizeOverflow, i.Name, width, height)
	}
	return uint32(total), nil
}
