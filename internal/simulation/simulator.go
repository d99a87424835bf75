// Package simulation runs Monte Carlo two-arm clinical trials and
// orchestrates batches of them on a bounded worker pool.
package simulation

import (
	"math/rand/v2"

	"ctsim/domain/trial"
	"ctsim/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// TrialRunner simulates one trial from its own random stream.
type TrialRunner interface {
	Simulate(cfg trial.Config, rng *rand.Rand) trial.Result
}

// Simulator synthesizes one randomized trial per call. It holds no mutable
// state and may be shared by all workers.
type Simulator struct {
	test      ports.SignificanceTest
	estimator ports.SurvivalEstimator
}

// NewSimulator creates a simulator using the given test and survival estimator
func NewSimulator(test ports.SignificanceTest, estimator ports.SurvivalEstimator) *Simulator {
	return &Simulator{
		test:      test,
		estimator: estimator,
	}
}

// TestName returns the significance test in use
func (s *Simulator) TestName() string {
	return s.test.Name()
}

// EstimatorName returns the survival estimator in use
func (s *Simulator) EstimatorName() string {
	return s.estimator.Name()
}

// Simulate runs one trial. Draw order is fixed (treatment values, control
// values, treatment attrition, control attrition, event indicators) so a
// given stream always reproduces the same trial.
func (s *Simulator) Simulate(cfg trial.Config, rng *rand.Rand) trial.Result {
	treatment := drawArm(cfg.SampleSize, cfg.EffectSize, rng)
	control := drawArm(cfg.SampleSize, trial.ControlMean, rng)

	treatment = applyAttrition(treatment, cfg.DropoutRate, rng)
	control = applyAttrition(control, cfg.DropoutRate, rng)

	outcome := s.test.Test(treatment, control)

	result := trial.Result{
		PValue:              outcome.PValue,
		TestStatistic:       outcome.Statistic,
		EffectiveSampleSize: len(treatment),
		ControlSampleSize:   len(control),
		SurvivalCurve:       trial.SurvivalCurve{},
	}

	if len(treatment) == 0 {
		return result
	}

	// retained treatment values double as event/censoring times
	observed := drawEvents(len(treatment), rng)
	curve, err := s.estimator.Estimate(treatment, observed)
	if err == nil {
		result.SurvivalCurve = curve
	}

	return result
}

func drawArm(n int, mean float64, rng *rand.Rand) []float64 {
	dist := distuv.Normal{Mu: mean, Sigma: trial.StandardDeviation, Src: rng}
	values := make([]float64, n)
	for i := range values {
		values[i] = dist.Rand()
	}
	return values
}

// applyAttrition keeps each subject whose uniform draw is at least the
// dropout rate, so every subject is kept with probability 1-dropout and a
// zero rate never removes anyone. One draw is consumed per subject either way.
func applyAttrition(values []float64, dropoutRate float64, rng *rand.Rand) []float64 {
	retained := values[:0]
	for _, v := range values {
		if rng.Float64() >= dropoutRate {
			retained = append(retained, v)
		}
	}
	return retained
}

func drawEvents(n int, rng *rand.Rand) []bool {
	dist := distuv.Bernoulli{P: trial.EventObservedProbability, Src: rng}
	observed := make([]bool, n)
	for i := range observed {
		observed[i] = dist.Rand() == 1
	}
	return observed
}
