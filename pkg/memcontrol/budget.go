package memcontrol

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/T3-Labs/camera-hal/pkg/logger"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

// ErrBudgetExceeded is returned by Reserve when the requested bytes would
// push usage past the configured cap.
var ErrBudgetExceeded = errors.New("memcontrol: buffer memory budget exceeded")

type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	MaxBytes        uint64
	WarningPercent  float64
	CriticalPercent float64
}

type Stats struct {
	Used         uint64
	Max          uint64
	UsagePercent float64
	Level        Level
	Timestamp    time.Time
}

// Budget tracks the bytes of outstanding platform buffer allocations
// against a fixed cap. Unlike a heap-based memory controller it measures
// gralloc memory, which never shows up in Go runtime stats.
type Budget struct {
	mu        sync.Mutex
	config    Config
	used      uint64
	level     Level
	callbacks map[Level][]func(Stats)
}

func NewBudget(config Config) *Budget {
	if config.WarningPercent <= 0 {
		config.WarningPercent = 75
	}
	if config.CriticalPercent <= 0 {
		config.CriticalPercent = 90
	}

	return &Budget{
		config:    config,
		callbacks: make(map[Level][]func(Stats)),
	}
}

// OnLevelChange registers a callback fired whenever usage crosses into
// the given level.
func (b *Budget) OnLevelChange(level Level, fn func(Stats)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[level] = append(b.callbacks[level], fn)
}

// Reserve accounts n bytes against the budget, refusing the reservation
// if it would exceed the cap. A zero MaxBytes disables the cap.
func (b *Budget) Reserve(n uint64) error {
	b.mu.Lock()

	if b.config.MaxBytes > 0 && b.used+n > b.config.MaxBytes {
		used := b.used
		b.mu.Unlock()
		metrics.BudgetRefusals.Inc()
		return fmt.Errorf("%w: %d used + %d requested > %d max", ErrBudgetExceeded, used, n, b.config.MaxBytes)
	}

	b.used += n
	stats, cbs := b.updateLevelLocked()
	b.mu.Unlock()

	for _, fn := range cbs {
		fn(stats)
	}
	return nil
}

// Release returns n previously reserved bytes to the budget.
func (b *Budget) Release(n uint64) {
	b.mu.Lock()
	if n > b.used {
		logger.Log.Warnw("budget release exceeds reservation", "release", n, "used", b.used)
		n = b.used
	}
	b.used -= n
	stats, cbs := b.updateLevelLocked()
	b.mu.Unlock()

	for _, fn := range cbs {
		fn(stats)
	}
}

func (b *Budget) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statsLocked()
}

func (b *Budget) statsLocked() Stats {
	var percent float64
	if b.config.MaxBytes > 0 {
		percent = float64(b.used) / float64(b.config.MaxBytes) * 100
	}
	return Stats{
		Used:         b.used,
		Max:          b.config.MaxBytes,
		UsagePercent: percent,
		Level:        b.level,
		Timestamp:    time.Now(),
	}
}

// updateLevelLocked recomputes the pressure level and returns the callbacks
// to fire once the lock is dropped.
func (b *Budget) updateLevelLocked() (Stats, []func(Stats)) {
	stats := b.statsLocked()

	level := LevelNormal
	switch {
	case stats.UsagePercent >= b.config.CriticalPercent:
		level = LevelCritical
	case stats.UsagePercent >= b.config.WarningPercent:
		level = LevelWarning
	}

	metrics.BudgetUsedBytes.Set(float64(b.used))
	metrics.BudgetUsagePercent.Set(stats.UsagePercent)
	metrics.BudgetLevel.Set(float64(level))

	if level == b.level {
		return stats, nil
	}

	logger.Log.Infow("buffer budget level changed",
		"from", b.level.String(), "to", level.String(),
		"used", b.used, "max", b.config.MaxBytes)
	b.level = level
	stats.Level = level
	return stats, b.callbacks[level]
}
