package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Registry = registry
	return New(cfg), registry
}

func TestCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.TxInitiated("MOBILE", "SUCCESS")
	m.TxInitiated("MOBILE", "SUCCESS")
	m.TxInitiated("MOBILE", "PENDING")
	m.TxRejected("MOBILE", "validation")
	m.RetrySpawned("DTH", "FAILED")
	m.DuplicateSuppressed("MOBILE")
	m.ResolutionScheduled()
	m.RecoveryScanned(5)
	m.RecoveryRearmed(true)
	m.RecoveryRearmed(false)
	m.RecoveryRearmed(false)

	if got := testutil.ToFloat64(m.txInitiatedTotal.WithLabelValues("MOBILE", "SUCCESS")); got != 2 {
		t.Errorf("tx_initiated_total{MOBILE,SUCCESS} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.txInitiatedTotal.WithLabelValues("MOBILE", "PENDING")); got != 1 {
		t.Errorf("tx_initiated_total{MOBILE,PENDING} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.txRejectedTotal.WithLabelValues("MOBILE", "validation")); got != 1 {
		t.Errorf("tx_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.retrySpawnedTotal.WithLabelValues("DTH", "FAILED")); got != 1 {
		t.Errorf("retry_spawned_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.duplicateSuppressedTotal.WithLabelValues("MOBILE")); got != 1 {
		t.Errorf("duplicate_suppressed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resolutionScheduledTotal); got != 1 {
		t.Errorf("resolution_scheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recoveryScannedTotal); got != 5 {
		t.Errorf("recovery_scanned_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.recoveryRearmedTotal.WithLabelValues("true")); got != 1 {
		t.Errorf("recovery_rearmed_total{true} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recoveryRearmedTotal.WithLabelValues("false")); got != 2 {
		t.Errorf("recovery_rearmed_total{false} = %v, want 2", got)
	}
}

func TestTxResolved_ObservesPendingDuration(t *testing.T) {
	m, registry := newTestMetrics(t)

	m.TxResolved("MOBILE", "SUCCESS", 20*time.Second)
	m.TxResolved("MOBILE", "FAILED", 30*time.Second)

	if got := testutil.ToFloat64(m.txResolvedTotal.WithLabelValues("MOBILE", "SUCCESS")); got != 1 {
		t.Errorf("tx_resolved_total{SUCCESS} = %v, want 1", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "recharge_pending_duration_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
				t.Errorf("histogram sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("pending duration histogram not registered")
	}
}

func TestNew_DefaultsRegistry(t *testing.T) {
	// A nil registry must not panic; it falls back to the default registerer.
	// Use a fresh namespace to avoid duplicate registration across tests.
	registry := prometheus.NewRegistry()
	m := New(Config{Namespace: "recharge_test", Registry: registry})
	m.TxInitiated("MOBILE", "SUCCESS")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("metrics should register under the custom namespace")
	}
}
