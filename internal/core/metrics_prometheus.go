package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation counts and latency histograms.
type PrometheusMetricsRecorder struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the hatchery collectors on a fresh
// registry under namespace, "hatchery" when empty.
func NewPrometheusMetricsRecorder(namespace string) *PrometheusMetricsRecorder {
	if namespace == "" {
		namespace = "hatchery"
	}
	r := &PrometheusMetricsRecorder{
		registry: prometheus.NewRegistry(),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "service",
				Name:      "operations_total",
				Help:      "Service operations by name and outcome",
			},
			[]string{"operation", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "service",
				Name:      "operation_duration_seconds",
				Help:      "Service operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	r.registry.MustRegister(r.total, r.latency)
	return r
}

// Registry exposes the registry for HTTP handlers or text dumps.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
