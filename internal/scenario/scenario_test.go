package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctsim/domain/core"
	"ctsim/domain/trial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
scenarios:
  - name: baseline
    description: reference design
    num_trials: 100
    sample_size: 50
    effect_size: 0.5
    dropout_rate: 0.1
    seed: 42
  - name: small-null
    num_trials: 500
    sample_size: 10
    effect_size: 0
    dropout_rate: 0.2
    alpha: 0.01
    output: null.csv
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, f.Scenarios, 2)

	base := f.Scenarios[0]
	assert.Equal(t, "baseline", base.Name)
	assert.Equal(t, core.ScenarioID("baseline"), base.ID())
	assert.Equal(t, 100, base.NumTrials)
	assert.Equal(t, trial.Config{SampleSize: 50, EffectSize: 0.5, DropoutRate: 0.1}, base.Config)
	require.NotNil(t, base.Seed)
	assert.Equal(t, int64(42), *base.Seed)

	null, ok := f.Find("small-null")
	require.True(t, ok)
	assert.Nil(t, null.Seed)
	assert.Equal(t, 0.01, null.Alpha)
	assert.Equal(t, "null.csv", null.Output)

	_, ok = f.Find("missing")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Scenarios, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"no scenarios", "scenarios: []"},
		{"missing name", "scenarios:\n  - num_trials: 10\n    sample_size: 5\n    dropout_rate: 0.1\n"},
		{"blank name", "scenarios:\n  - name: \"  \"\n    num_trials: 10\n    sample_size: 5\n    dropout_rate: 0.1\n"},
		{"negative trials", "scenarios:\n  - name: a\n    num_trials: -1\n    sample_size: 5\n    dropout_rate: 0.1\n"},
		{"dropout of one", "scenarios:\n  - name: a\n    num_trials: 10\n    sample_size: 5\n    dropout_rate: 1\n"},
		{"zero sample size", "scenarios:\n  - name: a\n    num_trials: 10\n    dropout_rate: 0.1\n"},
		{"bad alpha", "scenarios:\n  - name: a\n    num_trials: 10\n    sample_size: 5\n    dropout_rate: 0.1\n    alpha: 2\n"},
		{"unknown key", "scenarios:\n  - name: a\n    num_trials: 10\n    sample_size: 5\n    dropout_rate: 0.1\n    arms: 3\n"},
		{"duplicate names", "scenarios:\n  - name: a\n    num_trials: 1\n    sample_size: 5\n    dropout_rate: 0.1\n  - name: a\n    num_trials: 1\n    sample_size: 5\n    dropout_rate: 0.1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err), "got %v", err)
		})
	}
}
