// Package jobmetrics instruments the reconciliation worker.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the worker collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tenants  *prometheus.CounterVec
}

// NewMetrics registers the collectors with registerer. A nil registerer gets a
// private registry, which keeps repeated construction in tests from panicking.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abilities_jobs_total",
			Help: "Reconcile task executions by task type and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abilities_jobs_failures_total",
			Help: "Failed reconcile task executions by task type.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "abilities_job_duration_seconds",
			Help:    "Reconcile task duration by task type.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		tenants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abilities_tenants_reconciled_total",
			Help: "Tenants whose roles were reconciled, by outcome.",
		}, []string{"status"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.tenants)
	return m
}

// Run measures one task execution and the tenants it reconciled.
type Run struct {
	metrics   *Metrics
	task      string
	started   time.Time
	succeeded int
	failed    int
}

// Start begins measuring a run of task.
func (m *Metrics) Start(task string) *Run {
	return &Run{metrics: m, task: task, started: time.Now()}
}

// Tenants adds tenant outcomes to the run.
func (r *Run) Tenants(succeeded, failed int) *Run {
	r.succeeded += succeeded
	r.failed += failed
	return r
}

// Finish records the run and returns err unchanged.
func (r *Run) Finish(err error) error {
	m := r.metrics
	if m == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.failures.WithLabelValues(r.task).Inc()
	}
	m.runs.WithLabelValues(r.task, status).Inc()
	m.duration.WithLabelValues(r.task).Observe(time.Since(r.started).Seconds())
	if r.succeeded > 0 {
		m.tenants.WithLabelValues("success").Add(float64(r.succeeded))
	}
	if r.failed > 0 {
		m.tenants.WithLabelValues("failure").Add(float64(r.failed))
	}
	return err
}
