package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics(t *testing.T) {
	data := []float64{4, 1, 3, 2}
	assert.Equal(t, 10.0, Sum(data))
	assert.Equal(t, 2.5, Mean(data))
	assert.Equal(t, 2.5, Median(data))
	assert.Equal(t, []float64{4, 1, 3, 2}, data, "median must not reorder its input")
	assert.InDelta(t, 1.25, Variance(data), 1e-12)
	assert.InDelta(t, 1.118033988, StandardDeviation(data), 1e-9)

	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Zero(t, Mean(nil))
	assert.Zero(t, Median(nil))
}
