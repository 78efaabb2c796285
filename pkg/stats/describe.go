// Package stats provides the descriptive statistics and significance
// testing used by the analysis services. Sample conventions follow the
// ones analysts expect from dataframe tooling: sample standard deviation,
// linearly interpolated quantiles, adjusted Fisher-Pearson skewness.
package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// Summary holds the descriptive statistics reported for a numeric sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Describe computes a Summary over data. A single observation has zero
// standard deviation; an empty sample returns the zero Summary.
func Describe(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}

	mean, _ := mstats.Mean(data)
	median, _ := mstats.Median(data)
	minVal, _ := mstats.Min(data)
	maxVal, _ := mstats.Max(data)

	std := 0.0
	if len(data) > 1 {
		std, _ = mstats.StandardDeviationSample(data)
	}

	return Summary{
		Count:  len(data),
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    minVal,
		Max:    maxVal,
		Q25:    Quantile(data, 0.25),
		Q75:    Quantile(data, 0.75),
	}
}

// Quantile returns the p-quantile (0 <= p <= 1) using linear interpolation
// between adjacent order statistics. This matches the default quantile
// convention of numpy/pandas; montanaflynn's Percentile uses a midpoint
// convention that yields different quartiles on small samples.
func Quantile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	frac := pos - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Skewness returns the adjusted Fisher-Pearson skewness coefficient.
// Fewer than three observations, or a constant sample, report zero.
func Skewness(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}

	n := float64(len(data))
	mean, _ := mstats.Mean(data)
	std, _ := mstats.StandardDeviationPopulation(data)
	if std == 0 {
		return 0
	}

	sumCubed := 0.0
	for _, x := range data {
		d := (x - mean) / std
		sumCubed += d * d * d
	}

	g1 := sumCubed / n
	return g1 * math.Sqrt(n*(n-1)) / (n - 2)
}

// OutlierBounds returns the Tukey fences [Q1-1.5*IQR, Q3+1.5*IQR].
func OutlierBounds(data []float64) (lower, upper float64) {
	q1 := Quantile(data, 0.25)
	q3 := Quantile(data, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// CountOutliers counts observations outside the Tukey fences.
func CountOutliers(data []float64) int {
	if len(data) == 0 {
		return 0
	}
	lower, upper := OutlierBounds(data)
	count := 0
	for _, x := range data {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}

// Pearson returns the Pearson correlation coefficient between x and y.
// A sample with zero variance yields r=0 with no error; callers that need
// to distinguish "uncorrelated" from "constant" must check the inputs.
func Pearson(x, y []float64) (float64, error) {
	return mstats.Pearson(x, y)
}
