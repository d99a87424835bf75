package trial

import (
	"encoding/json"
	"math"
)

// SurvivalPoint is one step of an estimated survival function.
type SurvivalPoint struct {
	Time        float64 `json:"time"`
	Probability float64 `json:"survival"`
}

// SurvivalCurve is ordered by ascending time. An empty curve means no
// subject remained to estimate from.
type SurvivalCurve []SurvivalPoint

// Final returns the survival probability after the last step, or NaN for an empty curve.
func (c SurvivalCurve) Final() float64 {
	if len(c) == 0 {
		return math.NaN()
	}
	return c[len(c)-1].Probability
}

// At evaluates the step function at time t.
func (c SurvivalCurve) At(t float64) float64 {
	if len(c) == 0 {
		return math.NaN()
	}
	if t < c[0].Time {
		return 1.0
	}
	s := 1.0
	for _, p := range c {
		if p.Time > t {
			break
		}
		s = p.Probability
	}
	return s
}

// Result is the immutable outcome of one simulated trial.
type Result struct {
	Index               int           `json:"trial"`
	PValue              float64       `json:"p_value"`
	TestStatistic       float64       `json:"t_statistic"`
	EffectiveSampleSize int           `json:"effective_sample_size"`
	ControlSampleSize   int           `json:"control_sample_size"`
	SurvivalCurve       SurvivalCurve `json:"survival_curve"`
}

// Defined reports whether the significance test could be computed.
func (r Result) Defined() bool {
	return !math.IsNaN(r.PValue)
}

// Significant reports whether the trial rejects the null at alpha.
// Undefined trials never reject.
func (r Result) Significant(alpha float64) bool {
	return r.Defined() && r.PValue < alpha
}

// resultJSON mirrors Result with NaN encoded as null, since encoding/json
// rejects NaN floats.
type resultJSON struct {
	Index               int           `json:"trial"`
	PValue              *float64      `json:"p_value"`
	TestStatistic       *float64      `json:"t_statistic"`
	EffectiveSampleSize int           `json:"effective_sample_size"`
	ControlSampleSize   int           `json:"control_sample_size"`
	SurvivalCurve       SurvivalCurve `json:"survival_curve"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// MarshalJSON encodes undefined statistics as null.
func (r Result) MarshalJSON() ([]byte, error) {
	curve := r.SurvivalCurve
	if curve == nil {
		curve = SurvivalCurve{}
	}
	return json.Marshal(resultJSON{
		Index:               r.Index,
		PValue:              finiteOrNil(r.PValue),
		TestStatistic:       finiteOrNil(r.TestStatistic),
		EffectiveSampleSize: r.EffectiveSampleSize,
		ControlSampleSize:   r.ControlSampleSize,
		SurvivalCurve:       curve,
	})
}

// UnmarshalJSON decodes null statistics back to NaN.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{
		Index:               raw.Index,
		PValue:              orNaN(raw.PValue),
		TestStatistic:       orNaN(raw.TestStatistic),
		EffectiveSampleSize: raw.EffectiveSampleSize,
		ControlSampleSize:   raw.ControlSampleSize,
		SurvivalCurve:       raw.SurvivalCurve,
	}
	return nil
}
