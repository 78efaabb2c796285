package stats

import (
	"errors"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrSampleTooSmall is returned when a significance test is asked to
// compare samples with fewer than two observations on either side.
var ErrSampleTooSmall = errors.New("two-sample t-test requires at least two observations per sample")

// TTestResult holds the outcome of a two-sample t-test.
type TTestResult struct {
	T  float64
	P  float64
	DF float64

	// ZeroVariance reports that the pooled variance was zero, in which
	// case T and P follow a fixed convention: identical means give
	// T=0, P=1; distinct means give T=0, P=0.
	ZeroVariance bool
}

// TwoSampleTTest runs an independent two-sample Student's t-test with
// pooled variance. The p-value is two-sided.
func TwoSampleTTest(a, b []float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, ErrSampleTooSmall
	}

	n1, n2 := float64(len(a)), float64(len(b))
	m1, _ := mstats.Mean(a)
	m2, _ := mstats.Mean(b)
	v1, _ := mstats.SampleVariance(a)
	v2, _ := mstats.SampleVariance(b)

	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled == 0 {
		if m1 == m2 {
			return TTestResult{T: 0, P: 1, DF: df, ZeroVariance: true}, nil
		}
		return TTestResult{T: 0, P: 0, DF: df, ZeroVariance: true}, nil
	}

	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	t := (m1 - m2) / se

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))

	return TTestResult{T: t, P: p, DF: df}, nil
}
