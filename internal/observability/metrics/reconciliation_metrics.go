package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	BucketUnpaid   = "unpaid"
	BucketInvoiced = "invoiced"
	BucketPaid     = "paid"
	BucketExcluded = "excluded"
)

const (
	GenerationResultCreated        = "created"
	GenerationResultEmptySelection = "empty_selection"
	GenerationResultNotBillable    = "not_billable"
	GenerationResultStoreError     = "store_error"
	GenerationResultLocked         = "locked"
	GenerationResultRateLimited    = "rate_limited"
	GenerationResultLoadError      = "load_error"
)

const (
	TransitionMarkPaid   = "mark_paid"
	TransitionMarkUnpaid = "mark_unpaid"
)

// ReconciliationMetrics tracks period loads, bucket sizes and invoice
// generation outcomes.
type ReconciliationMetrics struct {
	periodLoads        *prometheus.CounterVec
	periodLoadDuration prometheus.Observer
	coalescedLoads     prometheus.Counter
	classifiedItems    *prometheus.CounterVec
	generations        *prometheus.CounterVec
	generatedAmount    prometheus.Counter
	transitions        *prometheus.CounterVec
}

var (
	reconciliationMetricsOnce sync.Once
	reconciliationMetrics     *ReconciliationMetrics
)

// Reconciliation returns the singleton registry with default labels.
func Reconciliation() *ReconciliationMetrics {
	return ReconciliationWithConfig(Config{})
}

// ReconciliationWithConfig returns the singleton registry using config labels.
func ReconciliationWithConfig(cfg Config) *ReconciliationMetrics {
	reconciliationMetricsOnce.Do(func() {
		reconciliationMetrics = NewReconciliationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconciliationMetrics
}

// NewReconciliationMetrics registers a fresh set of collectors on registerer.
func NewReconciliationMetrics(registerer prometheus.Registerer, cfg Config) *ReconciliationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName(cfg),
		"env":     environment,
	}

	periodLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "leadbilling_period_loads_total",
		Help:        "Partner period loads by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	periodLoadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "leadbilling_period_load_duration_seconds",
		Help:        "Latency of fetching leads and invoices for one partner period.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		ConstLabels: constLabels,
	})
	coalescedLoads := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "leadbilling_period_loads_coalesced_total",
		Help:        "Period loads served by an identical in-flight load.",
		ConstLabels: constLabels,
	})
	classifiedItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "leadbilling_classified_items_total",
		Help:        "Assignment items classified per bucket.",
		ConstLabels: constLabels,
	}, []string{"bucket"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "leadbilling_invoice_generations_total",
		Help:        "Invoice generation attempts by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	generatedAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "leadbilling_invoiced_amount_total",
		Help:        "Sum of generated invoice totals.",
		ConstLabels: constLabels,
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "leadbilling_invoice_transitions_total",
		Help:        "Invoice status transitions by kind and result.",
		ConstLabels: constLabels,
	}, []string{"transition", "result"})

	registerer.MustRegister(
		periodLoads,
		periodLoadDuration,
		coalescedLoads,
		classifiedItems,
		generations,
		generatedAmount,
		transitions,
	)

	return &ReconciliationMetrics{
		periodLoads:        periodLoads,
		periodLoadDuration: periodLoadDuration,
		coalescedLoads:     coalescedLoads,
		classifiedItems:    classifiedItems,
		generations:        generations,
		generatedAmount:    generatedAmount,
		transitions:        transitions,
	}
}

func (m *ReconciliationMetrics) ObservePeriodLoad(duration time.Duration, err error, shared bool) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.periodLoads.WithLabelValues(result).Inc()
	m.periodLoadDuration.Observe(duration.Seconds())
	if shared {
		m.coalescedLoads.Inc()
	}
}

func (m *ReconciliationMetrics) AddClassified(bucket string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.classifiedItems.WithLabelValues(bucket).Add(float64(count))
}

func (m *ReconciliationMetrics) IncGeneration(result string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(result).Inc()
}

func (m *ReconciliationMetrics) AddGeneratedAmount(total float64) {
	if m == nil || total <= 0 {
		return
	}
	m.generatedAmount.Add(total)
}

func (m *ReconciliationMetrics) IncTransition(transition string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}
