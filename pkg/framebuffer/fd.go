package framebuffer

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// SharedFD owns a duplicated file descriptor to a kernel memory object.
// The duplicate keeps the underlying buffer alive independently of the
// opaque handle the descriptor was copied from, so a frame buffer's planes
// stay mappable for the buffer's whole lifetime.
type SharedFD struct {
	fd atomic.Int32
}

// NewSharedFD duplicates fd and returns an owning wrapper. The caller
// keeps ownership of the original descriptor.
func NewSharedFD(fd int) (*SharedFD, error) {
	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("dup fd %d: %w", fd, err)
	}
	unix.CloseOnExec(dup)

	s := &SharedFD{}
	s.fd.Store(int32(dup))
	return s, nil
}

// Get returns the duplicated descriptor, or -1 after Close.
func (s *SharedFD) Get() int {
	return int(s.fd.Load())
}

func (s *SharedFD) IsValid() bool {
	return s.fd.Load() >= 0
}

// Size reports the byte length of the underlying memory object by seeking
// to its end. Used for allocation diagnostics.
func (s *SharedFD) Size() (int64, error) {
	fd := s.fd.Load()
	if fd < 0 {
		return 0, fmt.Errorf("shared fd already closed")
	}
	return unix.Seek(int(fd), 0, unix.SEEK_END)
}

// Close releases the duplicated descriptor. Safe to call more than once.
func (s *SharedFD) Close() error {
	fd := s.fd.Swap(-1)
	if fd < 0 {
		return nil
	}
	return unix.Close(int(fd))
}
