package s1_ranking

import "math"

// QuarterSessions is the number of sessions in one trading quarter (252 / 4)
const QuarterSessions = 63

// Quarter weights, the most recent quarter counts double
var quarterWeights = [4]float64{0.4, 0.2, 0.2, 0.2}

// Strength returns the weighted one-year performance of a close series
// ⭐ SSOT: RS 점수 계산은 여기서만
// Any degenerate input (fewer than two closes, non-finite result) scores 0.
func Strength(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}

	total := 0.0
	for i, w := range quarterWeights {
		total += w * quarterPerformance(closes, i+1)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total
}

// quarterPerformance compounds the daily changes of the trailing n quarters
func quarterPerformance(closes []float64, n int) float64 {
	length := n * QuarterSessions
	if length > len(closes) {
		length = len(closes)
	}
	window := closes[len(closes)-length:]

	cum := 1.0
	for i := 1; i < len(window); i++ {
		change := window[i]/window[i-1] - 1
		if math.IsNaN(change) {
			// 0/0 구간은 변화율 없음으로 건너뜀
			continue
		}
		cum *= change + 1
	}
	return cum - 1
}

// RelativeStrength scores a series against the benchmark, 100 means in line
// The score is truncated toward zero at two decimals. NaN and ±Inf map to 0.
func RelativeStrength(closes, benchmark []float64) float64 {
	rs := (1 + Strength(closes)) / (1 + Strength(benchmark)) * 100
	if math.IsNaN(rs) || math.IsInf(rs, 0) {
		return 0
	}
	return math.Trunc(rs*100) / 100
}

// dropLast returns closes without the last n sessions, empty when n exceeds the length
func dropLast(closes []float64, n int) []float64 {
	if n >= len(closes) {
		return nil
	}
	return closes[:len(closes)-n]
}
