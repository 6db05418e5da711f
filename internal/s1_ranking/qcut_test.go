package s1_ranking

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQCut(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      int
		want   []int
	}{
		{"empty", nil, 100, []int{}},
		{"all equal", []float64{5, 5, 5}, 100, []int{0, 0, 0}},
		{"two buckets", []float64{1, 2, 3, 4}, 2, []int{0, 0, 1, 1}},
		{"unsorted input", []float64{4, 1, 3, 2}, 2, []int{1, 0, 1, 0}},
		{"ties collapse edges", []float64{1, 1, 1, 1, 2}, 4, []int{0, 0, 0, 0, 0}},
		{"quartiles", []float64{10, 20, 30, 40, 50, 60, 70, 80}, 4, []int{0, 0, 1, 1, 2, 2, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QCut(tt.values, tt.q))
		})
	}
}

func TestQCut_HundredDistinctValues(t *testing.T) {
	values := make([]float64, 100)
	want := make([]int, 100)
	for i := range values {
		values[i] = float64(i)
		want[i] = i
	}
	assert.Equal(t, want, QCut(values, 100))
}

func TestQCut_Monotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	values := make([]float64, 537)
	for i := range values {
		values[i] = float64(r.Intn(400)) + r.Float64()
	}

	buckets := QCut(values, 100)
	require.Len(t, buckets, len(values))

	for i := range values {
		assert.GreaterOrEqual(t, buckets[i], 0)
		assert.LessOrEqual(t, buckets[i], 99)
		for j := range values {
			if values[i] > values[j] {
				require.GreaterOrEqual(t, buckets[i], buckets[j], "%v > %v", values[i], values[j])
			}
		}
	}
}
