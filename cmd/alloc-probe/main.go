//go:build linux

// alloc-probe allocates frame buffers against the in-process memfd
// allocator and dumps the resolved plane geometry. The plane layout
// strategy is fixed at build time and undiscoverable from a handle's
// public shape, so this is the quickest way to inspect what a given
// build resolves.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/T3-Labs/camera-hal/pkg/allocator"
	"github.com/T3-Labs/camera-hal/pkg/caps"
	"github.com/T3-Labs/camera-hal/pkg/format"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/logger"
)

func main() {
	width := flag.Uint("width", 640, "frame width")
	height := flag.Uint("height", 480, "frame height")
	halCode := flag.Uint("hal-code", uint(caps.HalPixelFormatYCbCr420_888), "platform pixel format code")
	count := flag.Int("count", 1, "number of buffers to allocate")
	flag.Parse()

	if err := logger.InitLogger(true); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	capabilities := caps.Default()
	alloc := &gralloc.MemfdAllocator{
		SizeFor: func(w, h, code uint32) (uint32, error) {
			pf, ok := capabilities.ToPixelFormat(code)
			if !ok {
				return 0, fmt.Errorf("no mapping for format code %#x", code)
			}
			info, ok := format.Lookup(pf)
			if !ok {
				return 0, fmt.Errorf("no format info for %s", pf)
			}
			return info.FrameSize(w, h)
		},
	}

	session := allocator.NewSession(alloc, capabilities, allocator.WithTag("alloc-probe"))
	usage := gralloc.UsageHWCameraWrite | gralloc.UsageSWReadOften

	for i := 0; i < *count; i++ {
		buf, err := session.Allocate(uint32(*halCode), uint32(*width), uint32(*height), usage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "allocate %d: %v\n", i, err)
			os.Exit(1)
		}

		fmt.Printf("buffer %d: fds=%d ints=%d total=%d bytes\n",
			i, buf.Handle().NumFds(), buf.Handle().NumInts(), buf.TotalLength())
		for p, plane := range buf.Planes() {
			fmt.Printf("  plane %d: fd=%d offset=%d length=%d\n",
				p, plane.FD.Get(), plane.Offset, plane.Length)
		}
		buf.Release()
	}

	if err := session.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "session close: %v\n", err)
		os.Exit(1)
	}
}
