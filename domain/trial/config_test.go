package trial

import (
	"errors"
	"math"
	"testing"

	"ctsim/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid config", Config{SampleSize: 50, EffectSize: 0.5, DropoutRate: 0.1}, nil},
		{"zero dropout allowed", Config{SampleSize: 1, EffectSize: 0, DropoutRate: 0}, nil},
		{"negative effect allowed", Config{SampleSize: 10, EffectSize: -2, DropoutRate: 0.5}, nil},
		{"dropout just below one", Config{SampleSize: 5, DropoutRate: 0.999}, nil},
		{"zero sample size", Config{SampleSize: 0, DropoutRate: 0.1}, core.ErrSampleSize},
		{"negative sample size", Config{SampleSize: -3}, core.ErrSampleSize},
		{"dropout of one", Config{SampleSize: 10, DropoutRate: 1}, core.ErrDropoutRate},
		{"negative dropout", Config{SampleSize: 10, DropoutRate: -0.01}, core.ErrDropoutRate},
		{"NaN dropout", Config{SampleSize: 10, DropoutRate: math.NaN()}, core.ErrDropoutRate},
		{"infinite effect", Config{SampleSize: 10, EffectSize: math.Inf(1)}, core.ErrEffectSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestValidateTrialCount(t *testing.T) {
	assert.NoError(t, ValidateTrialCount(0, 0))
	assert.NoError(t, ValidateTrialCount(1000, 1000))
	assert.ErrorIs(t, ValidateTrialCount(-1, 0), core.ErrNegativeTrials)
	assert.ErrorIs(t, ValidateTrialCount(1001, 1000), core.ErrTrialLimitExceed)
}
