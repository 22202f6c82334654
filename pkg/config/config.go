package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/T3-Labs/camera-hal/pkg/format"
	"github.com/T3-Labs/camera-hal/pkg/gralloc"
	"github.com/T3-Labs/camera-hal/pkg/memcontrol"
)

type AllocatorConfig struct {
	Tag string `mapstructure:"tag"`
}

// FormatMapping overrides one platform format code → fourcc mapping.
type FormatMapping struct {
	HalCode uint32 `mapstructure:"hal_code"`
	Fourcc  string `mapstructure:"fourcc"`
}

type StreamConfig struct {
	Name       string   `mapstructure:"name"`
	Width      uint32   `mapstructure:"width"`
	Height     uint32   `mapstructure:"height"`
	HalCode    uint32   `mapstructure:"hal_code"`
	Usage      []string `mapstructure:"usage"`
	BufferPool int      `mapstructure:"buffer_pool"`
}

type MemoryConfig struct {
	MaxBufferMB     uint64  `mapstructure:"max_buffer_mb"`
	WarningPercent  float64 `mapstructure:"warning_percent"`
	CriticalPercent float64 `mapstructure:"critical_percent"`
}

type CircuitConfig struct {
	MaxFailures int64 `mapstructure:"max_failures"`
	ResetSec    int   `mapstructure:"reset_seconds"`
}

type Config struct {
	Development bool            `mapstructure:"development"`
	Allocator   AllocatorConfig `mapstructure:"allocator"`
	Formats     []FormatMapping `mapstructure:"formats"`
	Streams     []StreamConfig  `mapstructure:"streams"`
	Memory      MemoryConfig    `mapstructure:"memory"`
	Circuit     CircuitConfig   `mapstructure:"circuit"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetDefault("allocator.tag", "cameraHAL")
	viper.SetDefault("memory.warning_percent", 75.0)
	viper.SetDefault("memory.critical_percent", 90.0)
	viper.SetDefault("circuit.max_failures", 5)
	viper.SetDefault("circuit.reset_seconds", 30)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FormatOverrides converts the config's mapping entries into the form
// caps.NewFromFourccs consumes. Empty when the default mapping applies.
func (c *Config) FormatOverrides() map[uint32]string {
	if len(c.Formats) == 0 {
		return nil
	}
	out := make(map[uint32]string, len(c.Formats))
	for _, m := range c.Formats {
		out[m.HalCode] = m.Fourcc
	}
	return out
}

// BudgetConfig derives the memcontrol configuration. A zero MaxBufferMB
// disables the cap.
func (c *Config) BudgetConfig() memcontrol.Config {
	return memcontrol.Config{
		MaxBytes:        c.Memory.MaxBufferMB * 1024 * 1024,
		WarningPercent:  c.Memory.WarningPercent,
		CriticalPercent: c.Memory.CriticalPercent,
	}
}

// Validate checks the parts of the config that would otherwise only fail
// deep inside an allocation call.
func (c *Config) Validate() error {
	for _, m := range c.Formats {
		f, err := format.Parse(m.Fourcc)
		if err != nil {
			return fmt.Errorf("formats: hal_code %#x: %w", m.HalCode, err)
		}
		if _, ok := format.Lookup(f); !ok {
			return fmt.Errorf("formats: hal_code %#x: unsupported fourcc %q", m.HalCode, m.Fourcc)
		}
	}
	for _, s := range c.Streams {
		if s.Width == 0 || s.Height == 0 {
			return fmt.Errorf("stream %q: dimensions must be positive", s.Name)
		}
		if s.BufferPool < 0 {
			return fmt.Errorf("stream %q: buffer_pool must not be negative", s.Name)
		}
		if _, err := gralloc.ParseUsage(s.Usage); err != nil {
			return fmt.Errorf("stream %q: %w", s.Name, err)
		}
	}
	return nil
}
