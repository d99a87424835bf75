package trial

import (
	"encoding/json"
	"math"

	"github.com/montanaflynn/stats"
)

// Summary aggregates a batch for reporting.
type Summary struct {
	Trials              int       `json:"trials"`
	Requested           int       `json:"requested"`
	Alpha               float64   `json:"alpha"`
	DefinedPValues      int       `json:"defined_p_values"`
	UndefinedPValues    int       `json:"undefined_p_values"`
	Rejections          int       `json:"rejections"`
	EmpiricalPower      Statistic `json:"empirical_power"`
	PowerAmongDefined   Statistic `json:"power_among_defined"`
	MeanEffectiveSample Statistic `json:"mean_effective_sample_size"`
	MinEffectiveSample  int       `json:"min_effective_sample_size"`
	MaxEffectiveSample  int       `json:"max_effective_sample_size"`
	MedianPValue        Statistic `json:"median_p_value"`
	PValueQ25           Statistic `json:"p_value_q25"`
	PValueQ75           Statistic `json:"p_value_q75"`
	EmptySurvivalCurves int       `json:"empty_survival_curves"`
	MeanFinalSurvival   Statistic `json:"mean_final_survival"`
	MedianFinalSurvival Statistic `json:"median_final_survival"`
}

// Summarize computes batch-level statistics. Statistics over an empty set
// are NaN.
func Summarize(b *Batch, alpha float64) Summary {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}

	nan := Statistic(math.NaN())
	s := Summary{
		Trials:              b.Len(),
		Requested:           b.Requested,
		Alpha:               alpha,
		EmpiricalPower:      nan,
		PowerAmongDefined:   nan,
		MeanEffectiveSample: nan,
		MedianPValue:        nan,
		PValueQ25:           nan,
		PValueQ75:           nan,
		MeanFinalSurvival:   nan,
		MedianFinalSurvival: nan,
	}
	if s.Trials == 0 {
		return s
	}

	defined := make([]float64, 0, s.Trials)
	effective := make([]float64, 0, s.Trials)
	finals := make([]float64, 0, s.Trials)
	s.MinEffectiveSample = math.MaxInt

	for _, r := range b.Results {
		effective = append(effective, float64(r.EffectiveSampleSize))
		if r.EffectiveSampleSize < s.MinEffectiveSample {
			s.MinEffectiveSample = r.EffectiveSampleSize
		}
		if r.EffectiveSampleSize > s.MaxEffectiveSample {
			s.MaxEffectiveSample = r.EffectiveSampleSize
		}

		if r.Defined() {
			defined = append(defined, r.PValue)
			if r.PValue < alpha {
				s.Rejections++
			}
		}

		if len(r.SurvivalCurve) == 0 {
			s.EmptySurvivalCurves++
		} else {
			finals = append(finals, r.SurvivalCurve.Final())
		}
	}

	s.DefinedPValues = len(defined)
	s.UndefinedPValues = s.Trials - s.DefinedPValues
	s.EmpiricalPower = Statistic(float64(s.Rejections) / float64(s.Trials))
	if s.DefinedPValues > 0 {
		s.PowerAmongDefined = Statistic(float64(s.Rejections) / float64(s.DefinedPValues))
	}

	s.MeanEffectiveSample = Statistic(meanOrNaN(effective))
	s.MedianPValue = Statistic(medianOrNaN(defined))
	s.PValueQ25 = Statistic(percentileOrNaN(defined, 25))
	s.PValueQ75 = Statistic(percentileOrNaN(defined, 75))
	s.MeanFinalSurvival = Statistic(meanOrNaN(finals))
	s.MedianFinalSurvival = Statistic(medianOrNaN(finals))

	return s
}

func meanOrNaN(data []float64) float64 {
	v, err := stats.Mean(data)
	if err != nil {
		return math.NaN()
	}
	return v
}

func medianOrNaN(data []float64) float64 {
	v, err := stats.Median(data)
	if err != nil {
		return math.NaN()
	}
	return v
}

func percentileOrNaN(data []float64, pct float64) float64 {
	v, err := stats.Percentile(data, pct)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Statistic is a float that encodes NaN as JSON null.
type Statistic float64

// Float returns the raw value.
func (v Statistic) Float() float64 { return float64(v) }

// IsNaN reports whether the statistic is undefined.
func (v Statistic) IsNaN() bool { return math.IsNaN(float64(v)) }

func (v Statistic) MarshalJSON() ([]byte, error) {
	return json.Marshal(finiteOrNil(float64(v)))
}

func (v *Statistic) UnmarshalJSON(data []byte) error {
	var raw *float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Statistic(orNaN(raw))
	return nil
}
