package trial

// Batch is the complete, ordered set of trial results of one orchestrated run.
// For a completed batch len(Results) == Requested.
type Batch struct {
	Config    Config   `json:"config"`
	Requested int      `json:"requested"`
	Results   []Result `json:"results"`
}

// NewBatch returns an empty batch sized for numTrials results.
func NewBatch(cfg Config, numTrials int) *Batch {
	return &Batch{
		Config:    cfg,
		Requested: numTrials,
		Results:   make([]Result, 0, numTrials),
	}
}

// Len returns the number of result rows.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Results)
}

// Complete reports whether every requested trial produced a row.
func (b *Batch) Complete() bool {
	return b.Len() == b.Requested
}

// PValues returns the p-value column, NaN included.
func (b *Batch) PValues() []float64 {
	out := make([]float64, len(b.Results))
	for i, r := range b.Results {
		out[i] = r.PValue
	}
	return out
}

// EffectiveSampleSizes returns the effective_sample_size column.
func (b *Batch) EffectiveSampleSizes() []int {
	out := make([]int, len(b.Results))
	for i, r := range b.Results {
		out[i] = r.EffectiveSampleSize
	}
	return out
}

// Power returns the fraction of all rows rejecting at alpha. Undefined rows
// count in the denominator.
func (b *Batch) Power(alpha float64) float64 {
	if b.Len() == 0 {
		return 0
	}
	rejections := 0
	for _, r := range b.Results {
		if r.Significant(alpha) {
			rejections++
		}
	}
	return float64(rejections) / float64(len(b.Results))
}
