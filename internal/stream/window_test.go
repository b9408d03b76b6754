package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverjin839/riverflow/internal/types"
)

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name     string
		values   []int64
		expected types.TrendDirection
	}{
		{
			name:     "monotonic increase is rising",
			values:   []int64{10, 12, 14, 16},
			expected: types.TrendRising,
		},
		{
			name:     "monotonic decrease is falling",
			values:   []int64{16, 14, 12, 10},
			expected: types.TrendFalling,
		},
		{
			name:     "alternating values are flat",
			values:   []int64{10, 14, 9, 13, 10},
			expected: types.TrendFlat,
		},
		{
			name:     "two samples are flat",
			values:   []int64{10, 20},
			expected: types.TrendFlat,
		},
		{
			name:     "single sample is flat",
			values:   []int64{10},
			expected: types.TrendFlat,
		},
		{
			name:     "empty window is flat",
			values:   nil,
			expected: types.TrendFlat,
		},
		{
			name:     "rising at exactly 60 percent of transitions",
			values:   []int64{1, 2, 3, 4, 3, 2},
			expected: types.TrendRising,
		},
		{
			name:     "majority below 60 percent is flat",
			values:   []int64{1, 2, 3, 2, 1},
			expected: types.TrendFlat,
		},
		{
			name:     "plateaus count as neither direction",
			values:   []int64{5, 5, 5, 5},
			expected: types.TrendFlat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyTrend(tt.values))
		})
	}
}

func TestSupplyWindowEviction(t *testing.T) {
	w := &supplyWindow{}

	for i := int64(1); i <= 15; i++ {
		w.Push(i)
	}

	values := w.Values()
	assert.Len(t, values, supplyWindowSize)
	assert.Equal(t, int64(6), values[0])
	assert.Equal(t, int64(15), values[len(values)-1])
}

func TestSupplyWindowPartialFill(t *testing.T) {
	w := &supplyWindow{}
	w.Push(3)
	w.Push(7)

	assert.Equal(t, []int64{3, 7}, w.Values())
}
