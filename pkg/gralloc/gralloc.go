package gralloc

import (
	"fmt"
	"strings"
)

// Status is the platform allocator's raw result code. Zero means success;
// any other value is an allocator-specific failure code that this package
// passes through without interpreting.
type Status int32

const StatusOK Status = 0

func (s Status) OK() bool {
	return s == StatusOK
}

// Usage is the gralloc usage bitmask describing the intended consumers of
// a buffer. The values mirror the platform's gralloc usage bits.
type Usage uint64

const (
	UsageSWReadOften   Usage = 0x00000003
	UsageSWWriteOften  Usage = 0x00000030
	UsageHWTexture     Usage = 0x00000100
	UsageHWRender      Usage = 0x00000200
	UsageHWComposer    Usage = 0x00000800
	UsageHWCameraWrite Usage = 0x00020000
	UsageHWCameraRead  Usage = 0x00040000
)

var usageNames = map[string]Usage{
	"sw_read_often":   UsageSWReadOften,
	"sw_write_often":  UsageSWWriteOften,
	"hw_texture":      UsageHWTexture,
	"hw_render":       UsageHWRender,
	"hw_composer":     UsageHWComposer,
	"hw_camera_write": UsageHWCameraWrite,
	"hw_camera_read":  UsageHWCameraRead,
}

// ParseUsage combines named usage bits (as they appear in config files)
// into a single mask.
func ParseUsage(names []string) (Usage, error) {
	var usage Usage
	for _, name := range names {
		bit, ok := usageNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown usage flag %q", name)
		}
		usage |= bit
	}
	return usage, nil
}

// BufferHandle is the opaque handle the platform allocator issues for an
// allocated buffer: raw file descriptors plus vendor-defined metadata
// words. Its interpretation depends on the vendor handle layout compiled
// into the consumer.
type BufferHandle struct {
	Fds  []int
	Ints []uint32
}

func (h *BufferHandle) NumFds() int {
	return len(h.Fds)
}

func (h *BufferHandle) NumInts() int {
	return len(h.Ints)
}

// Allocator is the platform buffer allocator collaborator.
//
// The platform contract does not document whether concurrent Allocate/Free
// calls are safe. Callers must serialize access to one Allocator or verify
// the concrete implementation is internally synchronized.
type Allocator interface {
	// Allocate requests a buffer of the given dimensions and platform
	// format code. On success it returns the opaque handle and the
	// allocator-chosen row stride in pixels.
	Allocate(width, height, formatCode, layerCount uint32, usage Usage, tag string) (*BufferHandle, uint32, Status)

	// Free releases a handle previously returned by Allocate.
	Free(handle *BufferHandle) Status
}
