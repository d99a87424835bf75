// Package ttest provides two-sample difference-of-means significance tests.
package ttest

import (
	"math"

	"ctsim/domain/trial"
	"ctsim/ports"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StudentTest is the equal-variance (pooled) two-sample t-test.
type StudentTest struct{}

// NewStudentTest creates a new pooled-variance t-test
func NewStudentTest() *StudentTest {
	return &StudentTest{}
}

// Name returns the test name
func (s *StudentTest) Name() string {
	return "student_t"
}

// Test computes the two-sided pooled t-test of treatment vs control.
func (s *StudentTest) Test(treatment, control []float64) ports.TestOutcome {
	n1, n2 := float64(len(treatment)), float64(len(control))
	if len(treatment) < trial.MinObservationsPerArm || len(control) < trial.MinObservationsPerArm {
		return undefined()
	}

	mean1, var1 := stat.MeanVariance(treatment, nil)
	mean2, var2 := stat.MeanVariance(control, nil)

	df := n1 + n2 - 2
	pooled := ((n1-1)*var1 + (n2-1)*var2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))

	return outcome(mean1-mean2, se, df)
}

// WelchTest is the unequal-variance t-test with Welch–Satterthwaite degrees of freedom.
type WelchTest struct{}

// NewWelchTest creates a new Welch's t-test
func NewWelchTest() *WelchTest {
	return &WelchTest{}
}

// Name returns the test name
func (w *WelchTest) Name() string {
	return "welch_t"
}

// Test computes the two-sided Welch t-test of treatment vs control.
func (w *WelchTest) Test(treatment, control []float64) ports.TestOutcome {
	n1, n2 := float64(len(treatment)), float64(len(control))
	if len(treatment) < trial.MinObservationsPerArm || len(control) < trial.MinObservationsPerArm {
		return undefined()
	}

	mean1, var1 := stat.MeanVariance(treatment, nil)
	mean2, var2 := stat.MeanVariance(control, nil)

	a, b := var1/n1, var2/n2
	se := math.Sqrt(a + b)
	df := (a + b) * (a + b) / (a*a/(n1-1) + b*b/(n2-1))

	return outcome(mean1-mean2, se, df)
}

// New returns the test registered under name, defaulting to the pooled test.
func New(name string) ports.SignificanceTest {
	switch name {
	case "welch", "welch_t":
		return NewWelchTest()
	default:
		return NewStudentTest()
	}
}

func outcome(diff, se, df float64) ports.TestOutcome {
	// zero spread in both arms leaves the statistic undefined
	if se == 0 || math.IsNaN(se) || math.IsNaN(df) || df <= 0 {
		return undefined()
	}

	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}

	return ports.TestOutcome{
		Statistic:        t,
		PValue:           p,
		DegreesOfFreedom: df,
	}
}

func undefined() ports.TestOutcome {
	return ports.TestOutcome{
		Statistic:        math.NaN(),
		PValue:           math.NaN(),
		DegreesOfFreedom: math.NaN(),
	}
}
