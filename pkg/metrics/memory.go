package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BudgetUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camera_hal_budget_used_bytes",
		Help: "Buffer bytes currently reserved against the memory budget",
	})

	BudgetUsagePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camera_hal_budget_usage_percent",
		Help: "Budget utilization percentage",
	})

	BudgetLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camera_hal_budget_level",
		Help: "Budget pressure level (0=Normal, 1=Warning, 2=Critical)",
	})

	BudgetRefusals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camera_hal_budget_refusals_total",
		Help: "Allocations refused for exceeding the memory budget",
	})
)
