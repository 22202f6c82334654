package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/T3-Labs/camera-hal/pkg/allocator"
	"github.com/T3-Labs/camera-hal/pkg/circuit"
	"github.com/T3-Labs/camera-hal/pkg/framebuffer"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/logger"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

var (
	ErrPoolClosed  = errors.New("pool: closed")
	ErrPoolDrained = errors.New("pool: no buffer available")
)

// Config fixes the stream geometry every buffer in a pool is allocated
// with.
type Config struct {
	Name       string
	FormatCode uint32
	Width      uint32
	Height     uint32
	Usage      gralloc.Usage
	Count      int
}

// BufferPool pre-allocates the buffers a capture stream cycles through,
// so the steady-state frame loop never re-enters the platform allocator.
// Faulted buffers are discarded and re-allocated through a circuit
// breaker, which keeps a refusing allocator from being retried in a tight
// loop.
//
// Close must be called before the owning session is closed: the pool's
// parked buffers count against the session's outstanding total.
type BufferPool struct {
	session *allocator.Session
	breaker *circuit.Breaker
	config  Config

	buffers chan *framebuffer.FrameBuffer

	mu     sync.Mutex
	closed bool

	acquired  int64
	discarded int64
}

// NewBufferPool allocates cfg.Count buffers up front. If any allocation
// fails, the ones already allocated are released and the error is
// returned. The breaker may be nil; discard-refill then retries
// unconditionally.
func NewBufferPool(session *allocator.Session, cfg Config, breaker *circuit.Breaker) (*BufferPool, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("pool: count must be positive, got %d", cfg.Count)
	}
	if cfg.Name == "" {
		cfg.Name = "stream"
	}

	p := &BufferPool{
		session: session,
		breaker: breaker,
		config:  cfg,
		buffers: make(chan *framebuffer.FrameBuffer, cfg.Count),
	}

	for i := 0; i < cfg.Count; i++ {
		buf, err := session.Allocate(cfg.FormatCode, cfg.Width, cfg.Height, cfg.Usage)
		if err != nil {
			p.drain()
			return nil, fmt.Errorf("pool %s: preallocating buffer %d/%d: %w", cfg.Name, i+1, cfg.Count, err)
		}
		p.buffers <- buf
	}

	metrics.PoolAvailable.WithLabelValues(cfg.Name).Set(float64(cfg.Count))
	logger.Log.Infow("buffer pool ready",
		"pool", cfg.Name, "count", cfg.Count,
		"width", cfg.Width, "height", cfg.Height, "formatCode", cfg.FormatCode)
	return p, nil
}

// Acquire takes a buffer out of the pool, blocking until one is released
// or the context is done.
func (p *BufferPool) Acquire(ctx context.Context) (*framebuffer.FrameBuffer, error) {
	select {
	case buf, ok := <-p.buffers:
		if !ok {
			return nil, ErrPoolClosed
		}
		atomic.AddInt64(&p.acquired, 1)
		metrics.PoolAvailable.WithLabelValues(p.config.Name).Dec()
		return buf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire is Acquire without blocking.
func (p *BufferPool) TryAcquire() (*framebuffer.FrameBuffer, error) {
	select {
	case buf, ok := <-p.buffers:
		if !ok {
			return nil, ErrPoolClosed
		}
		atomic.AddInt64(&p.acquired, 1)
		metrics.PoolAvailable.WithLabelValues(p.config.Name).Dec()
		return buf, nil
	default:
		return nil, ErrPoolDrained
	}
}

// Release parks a buffer back into the pool. After Close the buffer is
// released to the platform instead.
//
// The closed check and the channel send happen under the pool lock:
// Close marks the pool closed under the same lock before it closes the
// channel, so no send can race the close.
func (p *BufferPool) Release(buf *framebuffer.FrameBuffer) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		buf.Release()
		return
	}

	select {
	case p.buffers <- buf:
		p.mu.Unlock()
		metrics.PoolAvailable.WithLabelValues(p.config.Name).Inc()
	default:
		p.mu.Unlock()
		// Over-release: the pool never holds more than Count buffers.
		logger.Log.Warnw("pool over-release, freeing buffer", "pool", p.config.Name)
		buf.Release()
	}
}

// Discard frees a faulted buffer and tries to allocate a replacement
// through the circuit breaker. A refused replacement leaves the pool
// running below capacity; the next Discard attempts again.
func (p *BufferPool) Discard(buf *framebuffer.FrameBuffer) {
	buf.Release()
	atomic.AddInt64(&p.discarded, 1)
	metrics.PoolDiscards.WithLabelValues(p.config.Name).Inc()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	refill := func() error {
		replacement, err := p.session.Allocate(p.config.FormatCode, p.config.Width, p.config.Height, p.config.Usage)
		if err != nil {
			return err
		}
		p.Release(replacement)
		return nil
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Call(refill)
	} else {
		err = refill()
	}
	if err != nil {
		logger.Log.Errorw("pool refill failed", "pool", p.config.Name, "error", err)
	}
}

// Close frees every parked buffer. Buffers still acquired are the
// caller's responsibility; the pool must be fully drained back before the
// session can close.
func (p *BufferPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.drain()
	close(p.buffers)
	metrics.PoolAvailable.WithLabelValues(p.config.Name).Set(0)
	logger.Log.Infow("buffer pool closed", "pool", p.config.Name)
}

func (p *BufferPool) drain() {
	for {
		select {
		case buf := <-p.buffers:
			buf.Release()
		default:
			return
		}
	}
}

type Stats struct {
	Available int
	Capacity  int
	Acquired  int64
	Discarded int64
}

func (s Stats) String() string {
	return fmt.Sprintf("Pool: %d/%d, Acquired: %d, Discarded: %d",
		s.Available, s.Capacity, s.Acquired, s.Discarded)
}

func (p *BufferPool) Stats() Stats {
	return Stats{
		Available: len(p.buffers),
		Capacity:  p.config.Count,
		Acquired:  atomic.LoadInt64(&p.acquired),
		Discarded: atomic.LoadInt64(&p.discarded),
	}
}
