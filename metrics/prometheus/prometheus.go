// Package prometheus provides a Prometheus implementation of the metrics interface.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Tarunvoff/mobile-backend/metrics"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	// Transaction metrics
	txInitiatedTotal         *prometheus.CounterVec
	txRejectedTotal          *prometheus.CounterVec
	txResolvedTotal          *prometheus.CounterVec
	retrySpawnedTotal        *prometheus.CounterVec
	duplicateSuppressedTotal *prometheus.CounterVec
	pendingDuration          *prometheus.HistogramVec

	// Resolver metrics
	resolutionScheduledTotal prometheus.Counter

	// Recovery metrics
	recoveryScannedTotal prometheus.Counter
	recoveryRearmedTotal *prometheus.CounterVec
}

var _ metrics.Metrics = (*PrometheusMetrics)(nil)

// Config holds configuration for PrometheusMetrics.
type Config struct {
	// Namespace is the prefix for all metrics (e.g., "recharge")
	Namespace string
	// Subsystem is an optional subsystem name
	Subsystem string
	// Registry is the Prometheus registry to use. If nil, the default registry is used.
	Registry prometheus.Registerer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "recharge",
		Subsystem: "",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// New creates a new PrometheusMetrics instance with the given configuration.
func New(cfg Config) *PrometheusMetrics {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registry)

	return &PrometheusMetrics{
		txInitiatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tx_initiated_total",
			Help:      "Total number of transactions created via the primary path",
		}, []string{"service", "status"}),

		txRejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tx_rejected_total",
			Help:      "Total number of requests rejected before persistence",
		}, []string{"service", "reason"}),

		txResolvedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tx_resolved_total",
			Help:      "Total number of pending transactions resolved to a terminal status",
		}, []string{"service", "status"}),

		retrySpawnedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "retry_spawned_total",
			Help:      "Total number of retry transactions spawned from failed ones",
		}, []string{"service", "status"}),

		duplicateSuppressedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "duplicate_suppressed_total",
			Help:      "Total number of submissions suppressed by the duplicate guard",
		}, []string{"service"}),

		pendingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pending_duration_seconds",
			Help:      "Time spent in PENDING before resolution in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
		}, []string{"service"}),

		resolutionScheduledTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "resolution_scheduled_total",
			Help:      "Total number of resolution tasks armed",
		}),

		recoveryScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "recovery_scanned_total",
			Help:      "Total number of unresolved transactions scanned by the recovery sweep",
		}),

		recoveryRearmedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "recovery_rearmed_total",
			Help:      "Total number of resolutions re-armed by the recovery sweep",
		}, []string{"success"}),
	}
}

// Transaction metrics

func (p *PrometheusMetrics) TxInitiated(service, status string) {
	p.txInitiatedTotal.WithLabelValues(service, status).Inc()
}

func (p *PrometheusMetrics) TxRejected(service, reason string) {
	p.txRejectedTotal.WithLabelValues(service, reason).Inc()
}

func (p *PrometheusMetrics) TxResolved(service, status string, pendingFor time.Duration) {
	p.txResolvedTotal.WithLabelValues(service, status).Inc()
	p.pendingDuration.WithLabelValues(service).Observe(pendingFor.Seconds())
}

func (p *PrometheusMetrics) RetrySpawned(service, status string) {
	p.retrySpawnedTotal.WithLabelValues(service, status).Inc()
}

func (p *PrometheusMetrics) DuplicateSuppressed(service string) {
	p.duplicateSuppressedTotal.WithLabelValues(service).Inc()
}

// Resolver metrics

func (p *PrometheusMetrics) ResolutionScheduled() {
	p.resolutionScheduledTotal.Inc()
}

// Recovery metrics

func (p *PrometheusMetrics) RecoveryScanned(count int) {
	p.recoveryScannedTotal.Add(float64(count))
}

func (p *PrometheusMetrics) RecoveryRearmed(success bool) {
	successStr := "false"
	if success {
		successStr = "true"
	}
	p.recoveryRearmedTotal.WithLabelValues(successStr).Inc()
}
