// Package survival implements non-parametric survival estimators.
package survival

import (
	"fmt"
	"math"
	"sort"

	"ctsim/domain/trial"
)

// KaplanMeier is the product-limit estimator of a survival function.
//
// The returned curve has one point per distinct time, with S(t) = prod(1 - d_i/n_i)
// over all distinct times up to t, where d_i counts events and n_i counts
// subjects still at risk. When every time is positive the curve is anchored
// at (0, 1). Times that only carry censored subjects still appear as points
// with an unchanged probability.
type KaplanMeier struct{}

// NewKaplanMeier creates a new Kaplan-Meier estimator
func NewKaplanMeier() *KaplanMeier {
	return &KaplanMeier{}
}

// Name returns the estimator name
func (km *KaplanMeier) Name() string {
	return "kaplan_meier"
}

// Estimate fits the product-limit estimator.
func (km *KaplanMeier) Estimate(times []float64, observed []bool) (trial.SurvivalCurve, error) {
	if len(times) != len(observed) {
		return nil, fmt.Errorf("kaplan-meier: %d times but %d event indicators", len(times), len(observed))
	}
	if len(times) == 0 {
		return trial.SurvivalCurve{}, nil
	}

	order := make([]int, len(times))
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("kaplan-meier: non-finite time at index %d", i)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })

	curve := make(trial.SurvivalCurve, 0, len(times)+1)
	if times[order[0]] > 0 {
		curve = append(curve, trial.SurvivalPoint{Time: 0, Probability: 1})
	}

	atRisk := len(times)
	survival := 1.0
	for i := 0; i < len(order); {
		t := times[order[i]]
		events, removed := 0, 0
		for i < len(order) && times[order[i]] == t {
			if observed[order[i]] {
				events++
			}
			removed++
			i++
		}

		survival *= 1 - float64(events)/float64(atRisk)
		curve = append(curve, trial.SurvivalPoint{Time: t, Probability: survival})
		atRisk -= removed
	}

	return curve, nil
}

// MedianSurvivalTime returns the first time at which the curve drops to 0.5
// or below, or +Inf if it never does.
func MedianSurvivalTime(curve trial.SurvivalCurve) float64 {
	for _, p := range curve {
		if p.Probability <= 0.5 {
			return p.Time
		}
	}
	return math.Inf(1)
}
