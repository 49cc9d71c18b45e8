// Package metrics exposes scheduler counters and histograms for Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rota"

// Outcomes recorded by RecordRun.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeError      = "error"
	OutcomeTimeout    = "timeout"
)

var (
	scheduleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_runs_total",
			Help:      "Count of schedule runs by outcome.",
		},
		[]string{"outcome"},
	)
	fillRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_fill_ratio",
			Help:      "Fraction of required slots filled per run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
		},
	)
	passes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_passes",
			Help:      "Matching passes needed per run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)
	rowsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_rows_skipped_total",
			Help:      "Count of roster rows dropped during import.",
		},
	)
)

// Registry holds every metric of this package.
var Registry = prometheus.NewRegistry()

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(scheduleRuns)
		Registry.MustRegister(fillRatio)
		Registry.MustRegister(passes)
		Registry.MustRegister(rowsSkipped)
	})
}

// RecordRun records a finished schedule run. Failed runs only count the
// outcome.
func RecordRun(outcome string, filled, total, passCount int) {
	scheduleRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeError || outcome == OutcomeTimeout {
		return
	}
	if total > 0 {
		fillRatio.Observe(float64(filled) / float64(total))
	}
	passes.Observe(float64(passCount))
}

// RecordRowsSkipped adds n skipped roster rows.
func RecordRowsSkipped(n int) {
	if n > 0 {
		rowsSkipped.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
