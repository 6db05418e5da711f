package s1_ranking

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func linear(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i)
	}
	return out
}

func TestStrength(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single close", []float64{42}, 0},
		{"two closes", []float64{100, 110}, 0.1},
		{"flat", []float64{10, 10, 10, 10}, 0},
		{"zero price", []float64{0, 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Strength(tt.closes), 1e-12)
		})
	}
}

func TestStrength_WeightsRecentQuarter(t *testing.T) {
	// 앞 3분기 보합, 마지막 분기만 상승
	closes := make([]float64, 0, 4*QuarterSessions)
	for i := 0; i < 3*QuarterSessions+1; i++ {
		closes = append(closes, 100)
	}
	for len(closes) < 4*QuarterSessions {
		closes = append(closes, closes[len(closes)-1]+1)
	}
	q := closes[len(closes)-1]/100 - 1

	assert.InDelta(t, q, Strength(closes), 1e-9, "every quarter window sees the same gain")
}

func TestRelativeStrength_IdenticalSeries(t *testing.T) {
	bench := linear(250, 100)
	ticker := linear(250, 100)
	assert.Equal(t, 100.0, RelativeStrength(ticker, bench))
}

func TestRelativeStrength_ScaleInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	closes := make([]float64, 300)
	bench := make([]float64, 300)
	closes[0], bench[0] = 50, 400
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * (1 + (r.Float64()-0.48)*0.04)
		bench[i] = bench[i-1] * (1 + (r.Float64()-0.49)*0.02)
	}

	scaled := func(in []float64, k float64) []float64 {
		out := make([]float64, len(in))
		for i, v := range in {
			out[i] = v * k
		}
		return out
	}

	want := RelativeStrength(closes, bench)
	assert.Equal(t, want, RelativeStrength(scaled(closes, 2), scaled(bench, 2)))
	assert.InDelta(t, want, RelativeStrength(scaled(closes, 3.7), scaled(bench, 3.7)), 0.011)
}

func TestRelativeStrength_Truncates(t *testing.T) {
	flat := []float64{100, 100}
	assert.Equal(t, 112.34, RelativeStrength([]float64{100, 112.3456789}, flat))
	assert.Equal(t, 150.0, RelativeStrength([]float64{100, 150}, flat))
}

func TestRelativeStrength_DegenerateTicker(t *testing.T) {
	// 0원 시작 → strength 0 → 벤치마크 보합이면 100
	assert.Equal(t, 100.0, RelativeStrength([]float64{0, 10}, []float64{100, 100}))
}

func TestDropLast(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, dropLast([]float64{1, 2, 3}, 1))
	assert.Empty(t, dropLast([]float64{1, 2, 3}, 3))
	assert.Empty(t, dropLast([]float64{1}, 20))
}
