package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/T3-Labs/camera-hal/pkg/config"
)

func main() {
	path := flag.String("config", "config.toml", "path to the HAL config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*path)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Invalid config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Config loaded successfully!")
	fmt.Println("\n=== Allocator ===")
	fmt.Printf("Tag: %s\n", cfg.Allocator.Tag)
	fmt.Printf("Development: %v\n", cfg.Development)

	fmt.Println("\n=== Memory Budget ===")
	fmt.Printf("Max Buffer MB: %d\n", cfg.Memory.MaxBufferMB)
	fmt.Printf("Warning Percent: %.1f\n", cfg.Memory.WarningPercent)
	fmt.Printf("Critical Percent: %.1f\n", cfg.Memory.CriticalPercent)

	fmt.Println("\n=== Circuit ===")
	fmt.Printf("Max Failures: %d\n", cfg.Circuit.MaxFailures)
	fmt.Printf("Reset Seconds: %d\n", cfg.Circuit.ResetSec)

	fmt.Println("\n=== Format Overrides ===")
	if len(cfg.Formats) == 0 {
		fmt.Println("(none, default mapping)")
	}
	for _, m := range cfg.Formats {
		fmt.Printf("  %#x -> %s\n", m.HalCode, m.Fourcc)
	}

	fmt.Println("\n=== Streams ===")
	fmt.Printf("Total: %d streams\n", len(cfg.Streams))
	for i, s := range cfg.Streams {
		fmt.Printf("  [%d] %s: %dx%d hal_code=%#x pool=%d usage=%v\n",
			i+1, s.Name, s.Width, s.Height, s.HalCode, s.BufferPool, s.Usage)
	}
}
