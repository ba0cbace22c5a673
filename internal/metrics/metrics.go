// Package metrics exposes Prometheus collectors for quote computations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Simplici0/o.quote/internal/pricing"
)

const (
	StatusOK     = "ok"
	StatusIssues = "issues"
)

// Recorder records quote computation metrics into one registry.
type Recorder struct {
	computations *prometheus.CounterVec
	duration     prometheus.Histogram
	issues       *prometheus.CounterVec
	saved        prometheus.Counter
}

// NewRecorder registers the quote collectors with reg. A nil reg uses the
// default Prometheus registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		computations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_computations_total",
				Help: "Total number of quote computations by outcome",
			},
			[]string{"status"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_compute_duration_seconds",
				Help:    "Time taken to compute one quote",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		issues: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_validation_issues_total",
				Help: "Total number of validation issues reported on computed quotes",
			},
			[]string{"code"},
		),
		saved: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_saved_total",
				Help: "Total number of quotes persisted",
			},
		),
	}
}

// ObserveCompute records one finished computation. A nil Recorder is a no-op.
func (r *Recorder) ObserveCompute(res pricing.Result, elapsed time.Duration) {
	if r == nil {
		return
	}
	status := StatusOK
	if !res.OK() {
		status = StatusIssues
	}
	r.computations.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
	for _, issue := range res.Issues {
		r.issues.WithLabelValues(issue.Code).Inc()
	}
}

// ObserveSaved counts one persisted quote.
func (r *Recorder) ObserveSaved() {
	if r == nil {
		return
	}
	r.saved.Inc()
}
