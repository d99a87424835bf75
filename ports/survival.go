package ports

import "ctsim/domain/trial"

// SurvivalEstimator fits a survival function to right-censored times.
type SurvivalEstimator interface {
	Name() string
	// Estimate returns the curve for times with matching event indicators
	// (true = event observed, false = censored). An empty input yields an
	// empty curve.
	Estimate(times []float64, observed []bool) (trial.SurvivalCurve, error)
}
