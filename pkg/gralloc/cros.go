package gralloc

import (
	"fmt"
)

// CrosMaxPlanes is the fixed plane-array size in the cros vendor handle.
const CrosMaxPlanes = 4

// Metadata word layout of a cros-style vendor handle. All per-plane arrays
// are CrosMaxPlanes long regardless of NumPlanes; unused slots are zero.
//
//	word  0-1   buffer id (lo, hi)
//	word  2     width
//	word  3     height
//	word  4     format (drm fourcc)
//	word  5     plane count
//	words 6-9   per-plane strides
//	words 10-13 per-plane offsets
//	words 14-17 per-plane sizes
const (
	crosWordIDLo    = 0
	crosWordIDHi    = 1
	crosWordWidth   = 2
	crosWordHeight  = 3
	crosWordFormat  = 4
	crosWordPlanes  = 5
	crosWordStrides = 6
	crosWordOffsets = crosWordStrides + CrosMaxPlanes
	crosWordSizes   = crosWordOffsets + CrosMaxPlanes
	crosNumInts     = crosWordSizes + CrosMaxPlanes
)

// CrosHandle is the decoded form of a cros-style vendor buffer handle,
// carrying the allocator's authoritative per-plane geometry.
type CrosHandle struct {
	ID        uint64
	Width     uint32
	Height    uint32
	Format    uint32
	NumPlanes uint32
	Strides   [CrosMaxPlanes]uint32
	Offsets   [CrosMaxPlanes]uint32
	Sizes     [CrosMaxPlanes]uint32
}

// DecodeCrosHandle reinterprets an opaque handle as a cros vendor handle.
// This is only valid when the platform allocator in use is known to emit
// this exact layout; a handle that does not carry the expected metadata
// shape is rejected so a misconfigured build fails before producing a
// garbage plane sequence.
func DecodeCrosHandle(h *BufferHandle) (*CrosHandle, error) {
	if h.NumFds() < 1 {
		return nil, fmt.Errorf("cros handle carries no file descriptors")
	}
	if h.NumInts() < crosNumInts {
		return nil, fmt.Errorf("cros handle shape mismatch: %d metadata words, need %d", h.NumInts(), crosNumInts)
	}

	c := &CrosHandle{
		ID:        uint64(h.Ints[crosWordIDLo]) | uint64(h.Ints[crosWordIDHi])<<32,
		Width:     h.Ints[crosWordWidth],
		Height:    h.Ints[crosWordHeight],
		Format:    h.Ints[crosWordFormat],
		NumPlanes: h.Ints[crosWordPlanes],
	}
	if c.NumPlanes < 1 || c.NumPlanes > CrosMaxPlanes {
		return nil, fmt.Errorf("cros handle reports %d planes, expected 1..%d", c.NumPlanes, CrosMaxPlanes)
	}
	for i := 0; i < CrosMaxPlanes; i++ {
		c.Strides[i] = h.Ints[crosWordStrides+i]
		c.Offsets[i] = h.Ints[crosWordOffsets+i]
		c.Sizes[i] = h.Ints[crosWordSizes+i]
	}
	return c, nil
}

// Encode packs the vendor metadata back into an opaque handle around the
// given file descriptors. Used by in-process allocators and tests that
// emulate a cros-emitting platform.
func (c *CrosHandle) Encode(fds []int) *BufferHandle {
	ints := make([]uint32, crosNumInts)
	ints[crosWordIDLo] = uint32(c.ID)
	ints[crosWordIDHi] = uint32(c.ID >> 32)
	ints[crosWordWidth] = c.Width
	ints[crosWordHeight] = c.Height
	ints[crosWordFormat] = c.Format
	ints[crosWordPlanes] = c.NumPlanes
	for i := 0; i < CrosMaxPlanes; i++ {
		ints[crosWordStrides+i] = c.Strides[i]
		ints[crosWordOffsets+i] = c.Offsets[i]
		ints[crosWordSizes+i] = c.Sizes[i]
	}
	return &BufferHandle{Fds: fds, Ints: ints}
}
