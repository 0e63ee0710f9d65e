package models

// MetricsConfig selects which system metrics are collected.
type MetricsConfig struct {
	MonitorCPU        bool `yaml:"monitor_cpu" json:"monitor_cpu"`
	MonitorMemory     bool `yaml:"monitor_memory" json:"monitor_memory"`
	MonitorGoroutines bool `yaml:"monitor_goroutines" json:"monitor_goroutines"`
}

// SystemMetrics represents process and host health collected at request time.
type SystemMetrics struct {
	CPUUsage   *float64 `json:"cpu_usage,omitempty"`
	Memory     *float64 `json:"memory,omitempty"`
	Goroutines *float64 `json:"goroutines,omitempty"`
}
