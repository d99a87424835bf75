// Package metrics exposes simulation progress as Prometheus metrics.
package metrics

import (
	"time"

	"ctsim/domain/core"
	"ctsim/domain/trial"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcome label values
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Collector implements ports.BatchObserver on Prometheus metrics.
type Collector struct {
	trials          prometheus.Counter
	undefinedTrials prometheus.Counter
	batches         *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	effectiveSample prometheus.Histogram
}

// NewCollector registers the simulation metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		trials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "trials_total",
			Help:      "Total simulated trials",
		}),
		undefinedTrials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "trials_undefined_total",
			Help:      "Simulated trials whose p-value was undefined",
		}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctsim",
			Name:      "batches_total",
			Help:      "Simulation batches by outcome",
		}, []string{"outcome"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctsim",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of simulation batches",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		effectiveSample: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctsim",
			Name:      "effective_sample_size",
			Help:      "Retained treatment-arm subjects per trial",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// TrialCompleted is safe for concurrent use by workers
func (c *Collector) TrialCompleted(result trial.Result) {
	c.trials.Inc()
	if !result.Defined() {
		c.undefinedTrials.Inc()
	}
	c.effectiveSample.Observe(float64(result.EffectiveSampleSize))
}

// BatchFinished records the batch outcome and duration
func (c *Collector) BatchFinished(_ trial.Summary, duration time.Duration, err error) {
	c.batches.WithLabelValues(Outcome(err)).Inc()
	c.batchDuration.Observe(duration.Seconds())
}

// Outcome maps a batch error onto its label value
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case core.IsCancelledError(err):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
