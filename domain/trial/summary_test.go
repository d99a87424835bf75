package trial

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() *Batch {
	b := NewBatch(Config{SampleSize: 4, EffectSize: 1, DropoutRate: 0.2}, 4)
	b.Results = append(b.Results,
		Result{Index: 0, PValue: 0.01, EffectiveSampleSize: 4, SurvivalCurve: SurvivalCurve{{Time: 0.5, Probability: 0.5}, {Time: 1, Probability: 0}}},
		Result{Index: 1, PValue: 0.20, EffectiveSampleSize: 3, SurvivalCurve: SurvivalCurve{{Time: 0.1, Probability: 1}}},
		Result{Index: 2, PValue: math.NaN(), EffectiveSampleSize: 1, SurvivalCurve: SurvivalCurve{{Time: 2, Probability: 1}}},
		Result{Index: 3, PValue: math.NaN(), EffectiveSampleSize: 0},
	)
	return b
}

func TestSummarize(t *testing.T) {
	b := sampleBatch()
	s := Summarize(b, 0.05)

	assert.Equal(t, 4, s.Trials)
	assert.True(t, b.Complete())
	assert.Equal(t, 2, s.DefinedPValues)
	assert.Equal(t, 2, s.UndefinedPValues)
	assert.Equal(t, 1, s.Rejections)
	// undefined trials stay in the power denominator
	assert.InDelta(t, 0.25, s.EmpiricalPower.Float(), 1e-12)
	assert.InDelta(t, 0.5, s.PowerAmongDefined.Float(), 1e-12)
	assert.InDelta(t, b.Power(0.05), s.EmpiricalPower.Float(), 1e-12)
	assert.InDelta(t, 2.0, s.MeanEffectiveSample.Float(), 1e-12)
	assert.Equal(t, 0, s.MinEffectiveSample)
	assert.Equal(t, 4, s.MaxEffectiveSample)
	assert.InDelta(t, 0.105, s.MedianPValue.Float(), 1e-12)
	assert.Equal(t, 1, s.EmptySurvivalCurves)
	assert.InDelta(t, 2.0/3.0, s.MeanFinalSurvival.Float(), 1e-12)
}

func TestSummarize_EmptyBatch(t *testing.T) {
	s := Summarize(NewBatch(Config{SampleSize: 1}, 0), 0.05)

	assert.Equal(t, 0, s.Trials)
	assert.True(t, s.EmpiricalPower.IsNaN())
	assert.True(t, s.MedianPValue.IsNaN())

	// NaN statistics must still encode
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"empirical_power":null`)
}

func TestSummarize_DefaultsInvalidAlpha(t *testing.T) {
	s := Summarize(sampleBatch(), 0)
	assert.Equal(t, DefaultAlpha, s.Alpha)
}

func TestResult_JSONEncodesUndefinedAsNull(t *testing.T) {
	r := Result{Index: 7, PValue: math.NaN(), TestStatistic: math.NaN(), EffectiveSampleSize: 1}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trial":7,"p_value":null,"t_statistic":null,"effective_sample_size":1,"control_sample_size":0,"survival_curve":[]}`, string(data))

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Defined())
	assert.Equal(t, 7, back.Index)
}

func TestSurvivalCurve_At(t *testing.T) {
	curve := SurvivalCurve{{Time: 1, Probability: 0.8}, {Time: 2, Probability: 0.5}, {Time: 4, Probability: 0.1}}

	assert.Equal(t, 1.0, curve.At(0.5))
	assert.Equal(t, 0.8, curve.At(1))
	assert.Equal(t, 0.8, curve.At(1.9))
	assert.Equal(t, 0.5, curve.At(3))
	assert.Equal(t, 0.1, curve.At(10))
	assert.Equal(t, 0.1, curve.Final())
	assert.True(t, math.IsNaN(SurvivalCurve{}.At(1)))
	assert.True(t, math.IsNaN(SurvivalCurve(nil).Final()))
}
