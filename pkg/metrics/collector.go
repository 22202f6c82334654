package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camera_hal_allocations_total",
			Help: "Total successful platform buffer allocations",
		},
		[]string{"format"},
	)

	AllocationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camera_hal_allocation_failures_total",
			Help: "Total failed allocation attempts by failure class",
		},
		[]string{"reason"},
	)

	FreeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camera_hal_free_failures_total",
			Help: "Total non-success statuses returned by the platform free call",
		},
	)

	BuffersInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camera_hal_buffers_in_use",
			Help: "Allocated frame buffers not yet released",
		},
	)

	AllocatedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camera_hal_allocated_bytes",
			Help: "Total plane bytes of outstanding frame buffers",
		},
	)

	AllocationSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camera_hal_allocation_size_bytes",
			Help:    "Per-buffer total plane size",
			Buckets: []float64{65536, 262144, 524288, 1048576, 2097152, 4194304, 8388608, 16777216},
		},
		[]string{"format"},
	)

	PoolAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camera_hal_pool_available",
			Help: "Buffers currently parked in a stream pool",
		},
		[]string{"pool"},
	)

	PoolDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camera_hal_pool_discards_total",
			Help: "Buffers discarded from a stream pool after faults",
		},
		[]string{"pool"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camera_hal_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker_name"},
	)
)
