package allocator

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/T3-Labs/camera-hal/pkg/caps"
	"github.com/T3-Labs/camera-hal/pkg/framebuffer"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/logger"
	"github.com/T3-Labs/camera-hal/pkg/memcontrol"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

var (
	// ErrAllocationRefused means the platform allocator returned a non-OK
	// status. Recoverable; callers may retry with different parameters.
	ErrAllocationRefused = errors.New("allocator: platform refused allocation")

	// ErrInvalidHandle means the platform reported success but returned a
	// handle that is nil or carries no file descriptor. The platform
	// contract itself is broken; no safe continuation exists.
	ErrInvalidHandle = errors.New("allocator: platform returned success without a valid handle")

	// ErrUnknownFormat means a resolved pixel format has no entry in the
	// format table. Format negotiation should never produce such a format,
	// so this is a configuration error, failed fast rather than silently
	// producing a malformed plane sequence.
	ErrUnknownFormat = errors.New("allocator: pixel format not in format table")

	// ErrBuffersOutstanding is returned by Close while buffers produced by
	// the session are still alive.
	ErrBuffersOutstanding = errors.New("allocator: outstanding buffers not yet released")
)

const defaultTag = "cameraHAL"

type Option func(*Session)

// WithTag sets the debug tag passed to the platform allocator.
func WithTag(tag string) Option {
	return func(s *Session) { s.tag = tag }
}

// WithBudget makes the session account every buffer's plane bytes against
// a memory budget, refusing allocations that would exceed it.
func WithBudget(budget *memcontrol.Budget) Option {
	return func(s *Session) { s.budget = budget }
}

// Session issues allocation requests against one platform allocator and
// wraps the results into frame buffers.
//
// The session must outlive every FrameBuffer it produces: each buffer
// frees its handle through the session's allocator reference. Close
// enforces this ordering. Allocate and FrameBuffer.Release are not safe
// to call concurrently against an allocator that is not internally
// synchronized; the platform contract leaves this undocumented, so
// callers serialize unless they know better.
type Session struct {
	alloc  gralloc.Allocator
	caps   *caps.Capabilities
	tag    string
	budget *memcontrol.Budget

	outstanding atomic.Int64
}

func NewSession(alloc gralloc.Allocator, capabilities *caps.Capabilities, opts ...Option) *Session {
	s := &Session{
		alloc: alloc,
		caps:  capabilities,
		tag:   defaultTag,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Log.Infow("allocation session created", "tag", s.tag, "planeLayout", planeLayoutName)
	return s
}

// Allocate requests one buffer (layer count fixed at 1) of the given
// dimensions, platform format code and usage mask. On failure it returns
// a nil buffer and an error from this package's taxonomy; nothing is
// leaked on any failure path.
func (s *Session) Allocate(formatCode, width, height uint32, usage gralloc.Usage) (*framebuffer.FrameBuffer, error) {
	logger.Log.Debugw("allocate",
		"formatCode", formatCode, "width", width, "height", height,
		"usage", uint64(usage), "tag", s.tag)

	handle, stride, status := s.alloc.Allocate(width, height, formatCode, 1, usage, s.tag)
	if !status.OK() {
		metrics.AllocationFailures.WithLabelValues("refused").Inc()
		logger.Log.Errorw("failed buffer allocation", "status", int32(status))
		return nil, fmt.Errorf("%w: status %d", ErrAllocationRefused, int32(status))
	}

	if handle == nil || handle.NumFds() == 0 {
		metrics.AllocationFailures.WithLabelValues("invalid_handle").Inc()
		logger.Log.DPanicw("platform allocator returned success without a valid handle",
			"formatCode", formatCode, "width", width, "height", height)
		if handle != nil {
			s.freeHandle(handle)
		}
		return nil, ErrInvalidHandle
	}

	pixelFormat, ok := s.caps.ToPixelFormat(formatCode)
	if !ok {
		metrics.AllocationFailures.WithLabelValues("unknown_format").Inc()
		logger.Log.Errorw("no pixel format mapping for platform format code", "formatCode", formatCode)
		s.freeHandle(handle)
		return nil, fmt.Errorf("%w: platform code %#x has no mapping", ErrUnknownFormat, formatCode)
	}

	fd, err := framebuffer.NewSharedFD(handle.Fds[0])
	if err != nil {
		metrics.AllocationFailures.WithLabelValues("invalid_handle").Inc()
		logger.Log.DPanicw("cannot duplicate buffer fd", "fd", handle.Fds[0], "error", err)
		s.freeHandle(handle)
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}

	if dmaLength, err := fd.Size(); err == nil {
		logger.Log.Debugw("buffer allocated",
			"fd", fd.Get(), "pixelFormat", pixelFormat.String(), "stride", stride,
			"numFds", handle.NumFds(), "numInts", handle.NumInts(), "dmaLength", dmaLength)
	}

	planes, err := s.resolvePlanes(pixelFormat, width, height, handle, fd)
	if err != nil {
		reason := "unknown_format"
		if errors.Is(err, ErrInvalidHandle) {
			reason = "invalid_handle"
		}
		metrics.AllocationFailures.WithLabelValues(reason).Inc()
		fd.Close()
		s.freeHandle(handle)
		return nil, err
	}

	var total uint64
	for i, p := range planes {
		logger.Log.Debugw("plane resolved", "index", i, "offset", p.Offset, "length", p.Length)
		total += uint64(p.Length)
	}

	if s.budget != nil {
		if err := s.budget.Reserve(total); err != nil {
			metrics.AllocationFailures.WithLabelValues("budget").Inc()
			logger.Log.Errorw("allocation refused by buffer budget", "bytes", total, "error", err)
			fd.Close()
			s.freeHandle(handle)
			return nil, err
		}
	}

	s.outstanding.Add(1)
	metrics.AllocationsTotal.WithLabelValues(pixelFormat.String()).Inc()
	metrics.AllocationSizeBytes.WithLabelValues(pixelFormat.String()).Observe(float64(total))
	metrics.BuffersInUse.Inc()
	metrics.AllocatedBytes.Add(float64(total))

	return framebuffer.NewFrameBuffer(s.alloc, handle, planes, fd, func() {
		s.outstanding.Add(-1)
		metrics.BuffersInUse.Dec()
		metrics.AllocatedBytes.Sub(float64(total))
		if s.budget != nil {
			s.budget.Release(total)
		}
	}), nil
}

// Outstanding returns the number of buffers produced by this session that
// have not been released yet.
func (s *Session) Outstanding() int {
	return int(s.outstanding.Load())
}

// Close verifies the destruction-ordering contract: every buffer this
// session produced must be released first, otherwise a later release
// would free through a dangling allocator reference.
func (s *Session) Close() error {
	if n := s.outstanding.Load(); n > 0 {
		logger.Log.DPanicw("session closed with outstanding buffers", "outstanding", n)
		return fmt.Errorf("%w: %d alive", ErrBuffersOutstanding, n)
	}
	return nil
}

// freeHandle releases a handle on an allocation failure path, where a
// non-OK free status only gets logged.
func (s *Session) freeHandle(handle *gralloc.BufferHandle) {
	if status := s.alloc.Free(handle); !status.OK() {
		metrics.FreeFailures.Inc()
		logger.Log.Errorw("error freeing framebuffer", "status", int32(status))
	}
}
