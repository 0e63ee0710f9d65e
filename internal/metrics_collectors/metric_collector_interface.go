package metrics_collectors

import (
	"context"

	"github.com/benmeehan/rssi-collector/internal/models"
)

// MetricCollector defines the interface for collecting a specific metric.
type MetricCollector interface {
	Name() string                                // Name of the metric (e.g., "cpu", "memory")
	Collect(ctx context.Context) *float64        // Collect the metric value, nil when unavailable
	IsEnabled(config *models.MetricsConfig) bool // Check if the metric is enabled in the config
	Unit() string                                // Unit of the metric (e.g., "percentage", "count")
}
