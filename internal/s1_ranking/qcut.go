package s1_ranking

import (
	"math"
	"sort"
)

// QCut assigns each value to one of q equal-frequency buckets (0 ~ q-1)
// Edges are linear-interpolated quantiles at i/q. Duplicate edges are dropped,
// so heavily tied inputs yield fewer buckets. The minimum value belongs to
// bucket 0. Fewer than two distinct edges puts every value in bucket 0.
func QCut(values []float64, q int) []int {
	out := make([]int, len(values))
	if len(values) == 0 || q < 1 {
		return out
	}

	edges := quantileEdges(values, q)
	if len(edges) < 2 {
		return out
	}

	for i, v := range values {
		// 왼쪽 경계 미포함 (a, b], 최솟값은 첫 구간에 포함
		idx := sort.SearchFloat64s(edges, v)
		if v == edges[0] {
			idx = 1
		}
		bucket := idx - 1
		if bucket < 0 {
			bucket = 0
		}
		if bucket > len(edges)-2 {
			bucket = len(edges) - 2
		}
		out[i] = bucket
	}
	return out
}

// quantileEdges returns the unique quantile edges of values at 0, 1/q, ..., 1
func quantileEdges(values []float64, q int) []float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Float64s(sorted)

	n := len(sorted)
	step := 1.0 / float64(q)
	edges := make([]float64, 0, q+1)
	for i := 0; i <= q; i++ {
		p := float64(i) * step
		if i == q {
			p = 1
		}
		p = float64(p*100) / 100

		e := interpolate(sorted, quantileIndex(n, p))
		if len(edges) > 0 && e == edges[len(edges)-1] {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}

// quantileIndex is the fractional sample index of quantile p (linear method)
// Each product is rounded explicitly so the index never depends on FMA fusion.
func quantileIndex(n int, p float64) float64 {
	return float64(float64(n)*p) + (1 - p) - 1
}

// interpolate reads the sorted sample at a fractional index
func interpolate(sorted []float64, index float64) float64 {
	n := len(sorted)
	lo := math.Floor(index)
	if lo < 0 {
		lo = 0
	}
	if int(lo) >= n-1 {
		return sorted[n-1]
	}
	a, b := sorted[int(lo)], sorted[int(lo)+1]
	t := index - lo

	diff := b - a
	if t >= 0.5 {
		return b - float64(diff*(1-t))
	}
	return a + float64(diff*t)
}
