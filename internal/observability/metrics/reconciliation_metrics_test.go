package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReconciliationMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconciliationMetrics(reg, Config{ServiceName: "leadbilling", Environment: "test"})

	m.ObservePeriodLoad(150*time.Millisecond, nil, false)
	m.ObservePeriodLoad(20*time.Millisecond, errors.New("boom"), true)
	m.AddClassified(BucketUnpaid, 3)
	m.AddClassified(BucketPaid, 0)
	m.IncGeneration(GenerationResultCreated)
	m.IncGeneration(GenerationResultEmptySelection)
	m.AddGeneratedAmount(65.45)
	m.IncTransition(TransitionMarkPaid, nil)

	if got := testutil.ToFloat64(m.periodLoads.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 ok load, got %v", got)
	}
	if got := testutil.ToFloat64(m.periodLoads.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed load, got %v", got)
	}
	if got := testutil.ToFloat64(m.coalescedLoads); got != 1 {
		t.Fatalf("expected 1 coalesced load, got %v", got)
	}
	if got := testutil.ToFloat64(m.classifiedItems.WithLabelValues(BucketUnpaid)); got != 3 {
		t.Fatalf("expected 3 unpaid items, got %v", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues(GenerationResultCreated)); got != 1 {
		t.Fatalf("expected 1 created invoice, got %v", got)
	}
	if got := testutil.ToFloat64(m.generatedAmount); got != 65.45 {
		t.Fatalf("expected invoiced amount 65.45, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues(TransitionMarkPaid, "ok")); got != 1 {
		t.Fatalf("expected 1 mark_paid transition, got %v", got)
	}
}

func TestNilReconciliationMetricsAreSafe(t *testing.T) {
	var m *ReconciliationMetrics
	m.ObservePeriodLoad(time.Second, nil, false)
	m.AddClassified(BucketInvoiced, 2)
	m.IncGeneration(GenerationResultLocked)
	m.IncTransition(TransitionMarkUnpaid, errors.New("x"))
}
