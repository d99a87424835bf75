package metrics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"ctsim/domain/core"
	"ctsim/domain/trial"
	"ctsim/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.BatchObserver = (*Collector)(nil)

func TestCollector_TrialCompleted(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.TrialCompleted(trial.Result{PValue: 0.01, EffectiveSampleSize: 45})
	c.TrialCompleted(trial.Result{PValue: math.NaN(), EffectiveSampleSize: 1})
	c.TrialCompleted(trial.Result{PValue: 0.4, EffectiveSampleSize: 50})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.trials))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.undefinedTrials))
}

func TestCollector_BatchFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.BatchFinished(trial.Summary{}, time.Second, nil)
	c.BatchFinished(trial.Summary{}, time.Second, nil)
	c.BatchFinished(trial.Summary{}, time.Second, fmt.Errorf("%w: %w", core.ErrBatchCancelled, context.Canceled))
	c.BatchFinished(trial.Summary{}, time.Second, core.NewInfrastructureError("trial 3", fmt.Errorf("panic")))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.batches.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues(OutcomeFailed)))

	count, err := testutil.GatherAndCount(reg, "ctsim_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_RegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
