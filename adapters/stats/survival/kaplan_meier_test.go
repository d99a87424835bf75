package survival

import (
	"math"
	"testing"

	"ctsim/domain/trial"
	"ctsim/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var _ ports.SurvivalEstimator = (*KaplanMeier)(nil)

func TestKaplanMeier_TextbookExample(t *testing.T) {
	// times 1,2,2,3,4 with the second subject at t=2 censored and t=4 censored
	times := []float64{3, 2, 1, 4, 2}
	observed := []bool{true, true, true, false, false}

	curve, err := NewKaplanMeier().Estimate(times, observed)
	require.NoError(t, err)

	want := trial.SurvivalCurve{
		{Time: 0, Probability: 1},
		{Time: 1, Probability: 0.8},        // 1 - 1/5
		{Time: 2, Probability: 0.8 * 0.75}, // 1 event among 4 at risk
		{Time: 3, Probability: 0.6 * 0.5},  // 1 event among 2 at risk
		{Time: 4, Probability: 0.3},        // censored only
	}
	require.Len(t, curve, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Time, curve[i].Time, 1e-12, "point %d", i)
		assert.InDelta(t, want[i].Probability, curve[i].Probability, 1e-12, "point %d", i)
	}
	assert.Equal(t, 3.0, MedianSurvivalTime(curve))
}

func TestKaplanMeier_NegativeTimesHaveNoOrigin(t *testing.T) {
	curve, err := NewKaplanMeier().Estimate([]float64{-0.5, 0.7}, []bool{true, true})
	require.NoError(t, err)

	require.Len(t, curve, 2)
	assert.Equal(t, -0.5, curve[0].Time)
	assert.InDelta(t, 0.5, curve[0].Probability, 1e-12)
	assert.InDelta(t, 0.0, curve[1].Probability, 1e-12)
}

func TestKaplanMeier_AllCensored(t *testing.T) {
	curve, err := NewKaplanMeier().Estimate([]float64{1, 2, 3}, []bool{false, false, false})
	require.NoError(t, err)

	for _, p := range curve {
		assert.Equal(t, 1.0, p.Probability)
	}
	assert.True(t, math.IsInf(MedianSurvivalTime(curve), 1))
}

func TestKaplanMeier_EmptyAndInvalidInput(t *testing.T) {
	km := NewKaplanMeier()

	curve, err := km.Estimate(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, curve)
	assert.NotNil(t, curve)

	_, err = km.Estimate([]float64{1, 2}, []bool{true})
	assert.Error(t, err)

	_, err = km.Estimate([]float64{1, math.NaN()}, []bool{true, true})
	assert.Error(t, err)
}

func TestKaplanMeier_CurveInvariants(t *testing.T) {
	km := NewKaplanMeier()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "n")
		times := make([]float64, n)
		observed := make([]bool, n)
		for i := 0; i < n; i++ {
			// coarse grid forces ties
			times[i] = float64(rapid.IntRange(-20, 20).Draw(t, "time")) / 4
			observed[i] = rapid.Bool().Draw(t, "observed")
		}

		curve, err := km.Estimate(times, observed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(curve) == 0 {
			t.Fatalf("empty curve for %d subjects", n)
		}

		prev := 1.0
		for i, p := range curve {
			if p.Probability < 0 || p.Probability > 1 {
				t.Fatalf("probability %v out of range at %d", p.Probability, i)
			}
			if p.Probability > prev+1e-12 {
				t.Fatalf("curve increased at point %d: %v > %v", i, p.Probability, prev)
			}
			if i > 0 && p.Time <= curve[i-1].Time {
				t.Fatalf("times not strictly increasing at point %d", i)
			}
			prev = p.Probability
		}

		anyEvent := false
		for _, o := range observed {
			anyEvent = anyEvent || o
		}
		if !anyEvent && curve.Final() != 1 {
			t.Fatalf("censored-only data must keep survival at 1, got %v", curve.Final())
		}
	})
}
