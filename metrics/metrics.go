// Package metrics provides the metrics interface for the recharge engine.
package metrics

import "time"

// Metrics defines the interface for collecting observability metrics.
// Implementations can use Prometheus, StatsD, or other metrics backends.
type Metrics interface {
	// Transaction metrics
	TxInitiated(service, status string)
	TxRejected(service, reason string)
	TxResolved(service, status string, pendingFor time.Duration)
	RetrySpawned(service, status string)
	DuplicateSuppressed(service string)

	// Resolver metrics
	ResolutionScheduled()

	// Recovery metrics
	RecoveryScanned(count int)
	RecoveryRearmed(success bool)
}

// NoopMetrics is a no-op implementation of Metrics for testing or when
// metrics are disabled.
type NoopMetrics struct{}

var _ Metrics = (*NoopMetrics)(nil)

func (n *NoopMetrics) TxInitiated(service, status string)                      {}
func (n *NoopMetrics) TxRejected(service, reason string)                       {}
func (n *NoopMetrics) TxResolved(service, status string, d time.Duration)      {}
func (n *NoopMetrics) RetrySpawned(service, status string)                     {}
func (n *NoopMetrics) DuplicateSuppressed(service string)                      {}
func (n *NoopMetrics) ResolutionScheduled()                                    {}
func (n *NoopMetrics) RecoveryScanned(count int)                               {}
func (n *NoopMetrics) RecoveryRearmed(success bool)                            {}
