package pipeline

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

// Metrics holds Prometheus metrics for the pipeline subsystem. A nil
// *Metrics is a valid no-op receiver so tests can skip registration.
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	SignalsCollected  prometheus.Counter
	CollectorDuration *prometheus.HistogramVec
	CollectorFailures *prometheus.CounterVec
	ClassifyDuration  prometheus.Histogram
	ClassifyFailures  prometheus.Counter
	AlertsGenerated   prometheus.Counter
	AlertsStored      prometheus.Counter
	StoreFailures     *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_cycles_total",
			Help: "Total pipeline cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citypulse_cycle_duration_seconds",
			Help:    "Duration of full pipeline cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}),
		SignalsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_signals_collected_total",
			Help: "Total raw signals collected across all sources.",
		}),
		CollectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citypulse_collector_duration_seconds",
			Help:    "Duration of individual collector invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"source"}),
		CollectorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_collector_failures_total",
			Help: "Total collector failures by source.",
		}, []string{"source"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citypulse_classify_duration_seconds",
			Help:    "Duration of classification calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		ClassifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_classify_failures_total",
			Help: "Total failed or unparseable classification calls.",
		}),
		AlertsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_alerts_generated_total",
			Help: "Total alerts returned by classification.",
		}),
		AlertsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citypulse_alerts_stored_total",
			Help: "Total alerts durably stored.",
		}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citypulse_store_failures_total",
			Help: "Total per-alert store failures by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SignalsCollected,
		m.CollectorDuration,
		m.CollectorFailures,
		m.ClassifyDuration,
		m.ClassifyFailures,
		m.AlertsGenerated,
		m.AlertsStored,
		m.StoreFailures,
	)

	return m
}

// ObserveCycle records the final report of one cycle.
func (m *Metrics) ObserveCycle(r *Report) {
	if m == nil {
		return
	}
	outcome := "success"
	if !r.Success {
		outcome = "partial"
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(r.ExecutionTimeSeconds)
	m.AlertsGenerated.Add(float64(r.AlertsGenerated))
	m.AlertsStored.Add(float64(r.AlertsStored))
}

// ObserveSignals records the signal count for one cycle.
func (m *Metrics) ObserveSignals(n int) {
	if m == nil {
		return
	}
	m.SignalsCollected.Add(float64(n))
}

// ObserveCollector records one collector invocation.
func (m *Metrics) ObserveCollector(source string, duration float64, err error) {
	if m == nil {
		return
	}
	m.CollectorDuration.WithLabelValues(source).Observe(duration)
	if err != nil {
		m.CollectorFailures.WithLabelValues(source).Inc()
	}
}

// ObserveClassify records one classification call.
func (m *Metrics) ObserveClassify(duration float64, err error) {
	if m == nil {
		return
	}
	m.ClassifyDuration.Observe(duration)
	if err != nil {
		m.ClassifyFailures.Inc()
	}
}

// ObserveStoreFailure records one per-alert store failure, split into
// validation rejects and storage errors.
func (m *Metrics) ObserveStoreFailure(err error) {
	if m == nil {
		return
	}
	kind := "storage"
	var ve *alert.ValidationError
	if errors.As(err, &ve) {
		kind = "validation"
	}
	m.StoreFailures.WithLabelValues(kind).Inc()
}
