package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidConfig    = errors.New("invalid simulation configuration")
	ErrNegativeTrials   = fmt.Errorf("%w: trial count", ErrInvalidConfig)
	ErrSampleSize       = fmt.Errorf("%w: sample size", ErrInvalidConfig)
	ErrDropoutRate      = fmt.Errorf("%w: dropout rate", ErrInvalidConfig)
	ErrEffectSize       = fmt.Errorf("%w: effect size", ErrInvalidConfig)
	ErrTrialLimitExceed = fmt.Errorf("%w: trial count above limit", ErrInvalidConfig)

	// Batch execution errors
	ErrBatchCancelled = errors.New("simulation batch cancelled")
	ErrInfrastructure = errors.New("simulation infrastructure failure")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// NewValidationError reports an invalid field value against one of the
// configuration sentinels above.
func NewValidationError(kind error, field string, reason string) error {
	return fmt.Errorf("%w: %s %s", kind, field, reason)
}

// NewInfrastructureError wraps a worker-level fault.
func NewInfrastructureError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInfrastructure, op, err)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsCancelledError(err error) bool {
	return errors.Is(err, ErrBatchCancelled)
}

func IsInfrastructureError(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}
