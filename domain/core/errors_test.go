package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	cfgErr := NewValidationError(ErrDropoutRate, "dropout_rate", "must be in [0, 1)")
	if !IsConfigurationError(cfgErr) {
		t.Errorf("Expected %v to be a configuration error", cfgErr)
	}
	if !errors.Is(cfgErr, ErrDropoutRate) {
		t.Errorf("Expected %v to wrap ErrDropoutRate", cfgErr)
	}

	infra := NewInfrastructureError("trial 3", fmt.Errorf("boom"))
	if !IsInfrastructureError(infra) || IsConfigurationError(infra) {
		t.Errorf("Unexpected classification for %v", infra)
	}

	cancelled := fmt.Errorf("%w after 10 of 20 trials", ErrBatchCancelled)
	if !IsCancelledError(cancelled) {
		t.Errorf("Expected %v to be a cancellation", cancelled)
	}
}
