package run

import (
	"testing"

	"ctsim/domain/core"
	"ctsim/domain/trial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_FingerprintIgnoresWorkers(t *testing.T) {
	cfg := trial.Config{SampleSize: 50, EffectSize: 0.5, DropoutRate: 0.1}

	a := NewManifest(core.NewRunID(), cfg, 100, 42, 2, "student_t", "kaplan_meier", "v1")
	b := NewManifest(core.NewRunID(), cfg, 100, 42, 16, "student_t", "kaplan_meier", "v1")
	c := NewManifest(core.NewRunID(), cfg, 100, 43, 2, "student_t", "kaplan_meier", "v1")

	assert.True(t, a.SameReplay(b))
	assert.False(t, a.SameReplay(c))
	assert.False(t, a.SameReplay(nil))
	require.NoError(t, a.Validate())
}

func TestManifest_ValidateDetectsTampering(t *testing.T) {
	m := NewManifest(core.NewRunID(), trial.Config{SampleSize: 10}, 5, 1, 1, "student_t", "kaplan_meier", "v1")
	m.Seed = 2

	err := m.Validate()
	assert.ErrorIs(t, err, core.ErrSeedMismatch)
}

func TestManifest_ValidateRequiresFields(t *testing.T) {
	m := NewManifest("", trial.Config{SampleSize: 10}, 5, 1, 1, "student_t", "kaplan_meier", "v1")
	assert.Error(t, m.Validate())

	m = NewManifest(core.NewRunID(), trial.Config{SampleSize: 0}, 5, 1, 1, "student_t", "kaplan_meier", "v1")
	assert.True(t, core.IsConfigurationError(m.Validate()))
}
