package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoSampleTTestKnownValue(t *testing.T) {
	// [1,2,3] vs [4,5,6]: pooled variance 1, t = -3/sqrt(2/3), df = 4.
	result, err := TwoSampleTTest([]float64{1, 2, 3}, []float64{4, 5, 6})

	require.NoError(t, err)
	assert.InDelta(t, -3.6742, result.T, 1e-3)
	assert.InDelta(t, 0.0213, result.P, 1e-3)
	assert.InDelta(t, 4.0, result.DF, 1e-9)
	assert.False(t, result.ZeroVariance)
}

func TestTwoSampleTTestSeparatedClusters(t *testing.T) {
	offsets := []float64{-1.2, -0.4, 0.3, 0.9, -0.1, 0.5}

	a := make([]float64, 30)
	b := make([]float64, 30)
	for i := 0; i < 30; i++ {
		a[i] = 0 + offsets[i%len(offsets)]
		b[i] = 10 + offsets[i%len(offsets)]
	}

	result, err := TwoSampleTTest(a, b)

	require.NoError(t, err)
	assert.Less(t, result.P, 1e-6)
	assert.Negative(t, result.T)
}

func TestTwoSampleTTestZeroVariance(t *testing.T) {
	t.Run("identical means", func(t *testing.T) {
		result, err := TwoSampleTTest([]float64{5, 5, 5}, []float64{5, 5, 5})

		require.NoError(t, err)
		assert.True(t, result.ZeroVariance)
		assert.Equal(t, 0.0, result.T)
		assert.Equal(t, 1.0, result.P)
	})

	t.Run("distinct means", func(t *testing.T) {
		result, err := TwoSampleTTest([]float64{10, 10, 10}, []float64{20, 20, 20})

		require.NoError(t, err)
		assert.True(t, result.ZeroVariance)
		assert.Equal(t, 0.0, result.T)
		assert.Equal(t, 0.0, result.P)
	})
}

func TestTwoSampleTTestSampleTooSmall(t *testing.T) {
	_, err := TwoSampleTTest([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrSampleTooSmall)

	_, err = TwoSampleTTest([]float64{1, 2}, []float64{3})
	assert.ErrorIs(t, err, ErrSampleTooSmall)
}

func TestTwoSampleTTestFalsePositiveRate(t *testing.T) {
	// Both samples from the same normal distribution: rejections at
	// alpha=0.05 should land near 5% over many trials.
	rng := rand.New(rand.NewSource(42))

	const trials = 2000
	falsePositives := 0
	for trial := 0; trial < trials; trial++ {
		a := make([]float64, 30)
		b := make([]float64, 30)
		for i := range a {
			a[i] = rng.NormFloat64()
			b[i] = rng.NormFloat64()
		}

		result, err := TwoSampleTTest(a, b)
		require.NoError(t, err)
		if result.P < 0.05 {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	assert.Greater(t, rate, 0.02)
	assert.Less(t, rate, 0.08)
}
