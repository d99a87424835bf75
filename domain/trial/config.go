package trial

import (
	"math"

	"ctsim/domain/core"
)

// Protocol constants fixed by the simulated trial design.
const (
	// ControlMean is the mean of the control arm's generating distribution.
	ControlMean = 0.0
	// StandardDeviation is shared by both arms' generating distributions.
	StandardDeviation = 1.0
	// EventObservedProbability is the chance a retained treatment subject
	// experiences the tracked event instead of being censored.
	EventObservedProbability = 0.9
	// MinObservationsPerArm is the smallest arm for which the two-sample test is defined.
	MinObservationsPerArm = 2
	// DefaultAlpha is the significance threshold used for empirical power.
	DefaultAlpha = 0.05
)

// Config is shared read-only by every trial in a batch.
type Config struct {
	SampleSize  int     `json:"sample_size" yaml:"sample_size"`
	EffectSize  float64 `json:"effect_size" yaml:"effect_size"`
	DropoutRate float64 `json:"dropout_rate" yaml:"dropout_rate"`
}

// Validate reports the first invalid field as a configuration error.
func (c Config) Validate() error {
	if c.SampleSize <= 0 {
		return core.NewValidationError(core.ErrSampleSize, "sample_size", "must be positive")
	}
	if math.IsNaN(c.EffectSize) || math.IsInf(c.EffectSize, 0) {
		return core.NewValidationError(core.ErrEffectSize, "effect_size", "must be finite")
	}
	if math.IsNaN(c.DropoutRate) || c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return core.NewValidationError(core.ErrDropoutRate, "dropout_rate", "must be in [0, 1)")
	}
	return nil
}

// ValidateTrialCount checks the requested number of trials. A limit <= 0
// means unbounded.
func ValidateTrialCount(numTrials, limit int) error {
	if numTrials < 0 {
		return core.NewValidationError(core.ErrNegativeTrials, "num_trials", "must not be negative")
	}
	if limit > 0 && numTrials > limit {
		return core.NewValidationError(core.ErrTrialLimitExceed, "num_trials", "exceeds configured maximum")
	}
	return nil
}

// Params returns the configuration as a flat map for fingerprinting.
func (c Config) Params() map[string]interface{} {
	return map[string]interface{}{
		"sample_size":  c.SampleSize,
		"effect_size":  c.EffectSize,
		"dropout_rate": c.DropoutRate,
	}
}
