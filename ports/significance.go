package ports

// TestOutcome is the result of a two-sample significance test. Fields are
// NaN when the test is undefined for the given samples.
type TestOutcome struct {
	Statistic        float64
	PValue           float64
	DegreesOfFreedom float64
}

// SignificanceTest compares the means of two independent samples.
type SignificanceTest interface {
	Name() string
	Test(treatment, control []float64) TestOutcome
}
