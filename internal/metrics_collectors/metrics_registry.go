package metrics_collectors

import (
	"context"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/rs/zerolog"
)

// MetricsRegistry holds the collectors reported by the debug endpoint.
type MetricsRegistry struct {
	config     models.MetricsConfig
	collectors map[string]MetricCollector
	order      []string
}

// NewMetricsRegistry creates a MetricsRegistry for the given configuration.
func NewMetricsRegistry(config models.MetricsConfig) *MetricsRegistry {
	return &MetricsRegistry{
		config:     config,
		collectors: make(map[string]MetricCollector),
	}
}

// NewDefaultMetricsRegistry registers the CPU, memory and goroutine collectors.
func NewDefaultMetricsRegistry(config models.MetricsConfig, logger zerolog.Logger) *MetricsRegistry {
	r := NewMetricsRegistry(config)
	r.Register(&CPUMetricCollector{Logger: logger})
	r.Register(&MemoryMetricCollector{Logger: logger})
	r.Register(&GoroutineMetricCollector{Logger: logger})
	return r
}

// Register adds a new metric collector to the registry.
func (r *MetricsRegistry) Register(collector MetricCollector) {
	if _, exists := r.collectors[collector.Name()]; !exists {
		r.order = append(r.order, collector.Name())
	}
	r.collectors[collector.Name()] = collector
}

// GetCollectors returns all the metric collectors registered in the registry.
func (r *MetricsRegistry) GetCollectors() map[string]MetricCollector {
	return r.collectors
}

// Collect runs every enabled collector. It returns nil when nothing is enabled.
func (r *MetricsRegistry) Collect(ctx context.Context) *models.SystemMetrics {
	var (
		out     models.SystemMetrics
		enabled bool
	)
	for _, name := range r.order {
		c := r.collectors[name]
		if !c.IsEnabled(&r.config) {
			continue
		}
		enabled = true
		v := c.Collect(ctx)
		switch name {
		case "cpu":
			out.CPUUsage = v
		case "memory":
			out.Memory = v
		case "goroutines":
			out.Goroutines = v
		}
	}
	if !enabled {
		return nil
	}
	return &out
}
