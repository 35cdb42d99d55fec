// Package metrics holds the Prometheus instruments for store and query
// activity. Each Metrics owns a private registry so several stores in one
// process (and parallel tests) never collide on registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "localdoc"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
)

// Metrics holds all Prometheus metrics for a localdoc store.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Object store
	StoreOpsTotal    *prometheus.CounterVec
	StoreOpDuration  *prometheus.HistogramVec
	RowsScannedTotal prometheus.Counter

	// Query pipeline
	QueryRunsTotal        *prometheus.CounterVec
	QueryDuration         prometheus.Histogram
	DocumentsMatchedTotal prometheus.Counter
	ACLDeniedTotal        prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StoreOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of object store operations",
		}, []string{"op", "outcome"}),
		StoreOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of object store operation durations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us to ~1.6s
		}, []string{"op"}),
		RowsScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_scanned_total",
			Help:      "Total number of bucket rows decoded by scans",
		}),

		QueryRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "runs_total",
			Help:      "Total number of query pipeline runs",
		}, []string{"outcome"}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Histogram of query pipeline durations",
			Buckets:   prometheus.DefBuckets,
		}),
		DocumentsMatchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "documents_matched_total",
			Help:      "Total number of documents that matched a query expression",
		}),
		ACLDeniedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "acl_denied_total",
			Help:      "Total number of matched documents dropped by the ACL filter",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Gather collects the current metric families.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	if m == nil {
		return nil, nil
	}
	return m.registry.Gather()
}

// ObserveStoreOp records one store operation that began at start.
func (m *Metrics) ObserveStoreOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.StoreOpsTotal.WithLabelValues(op, outcome).Inc()
	m.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// AddRowsScanned counts decoded rows.
func (m *Metrics) AddRowsScanned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsScannedTotal.Add(float64(n))
}

// ObserveQuery records one pipeline run.
func (m *Metrics) ObserveQuery(outcome string, start time.Time, matched, denied int) {
	if m == nil {
		return
	}
	m.QueryRunsTotal.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(time.Since(start).Seconds())
	if matched > 0 {
		m.DocumentsMatchedTotal.Add(float64(matched))
	}
	if denied > 0 {
		m.ACLDeniedTotal.Add(float64(denied))
	}
}
