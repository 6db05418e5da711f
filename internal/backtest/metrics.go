package backtest

import (
	"math"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// calculateMetrics fills the summary statistics from the ledger timeline
func calculateMetrics(summary *contracts.LedgerSummary, taken []contracts.Position) {
	if summary.InitialCash > 0 {
		summary.Performance = (summary.FinalCash - summary.InitialCash) / summary.InitialCash
	}

	totals := make([]float64, 0, len(summary.Events)+1)
	totals = append(totals, summary.InitialCash)
	for _, ev := range summary.Events {
		totals = append(totals, ev.Total)
	}
	summary.MaxDrawdown = calculateMaxDrawdown(totals)

	if !summary.FirstEntryDate.IsZero() && summary.LastExitDate.After(summary.FirstEntryDate) {
		summary.CAGR = calculateCAGR(summary.InitialCash, summary.FinalCash, summary.LastExitDate.Sub(summary.FirstEntryDate))
	}

	if len(taken) == 0 {
		return
	}

	returns := make([]float64, len(taken))
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for i, p := range taken {
		returns[i] = p.ReturnPct
		if p.ReturnPct > 0 {
			wins++
			winSum += p.ReturnPct
		} else {
			losses++
			lossSum += p.ReturnPct
		}
	}

	summary.WinRate = float64(wins) / float64(len(taken))
	if wins > 0 {
		summary.AvgWinPct = winSum / float64(wins)
	}
	if losses > 0 {
		summary.AvgLossPct = lossSum / float64(losses)
	}
	summary.ReturnStdDev = calculateVolatility(returns)
}

// calculateCAGR annualises growth over the elapsed calendar time
func calculateCAGR(initial, final float64, elapsed time.Duration) float64 {
	years := elapsed.Hours() / 24 / 365.25
	if years <= 0 || initial <= 0 || final <= 0 {
		return 0
	}
	return math.Pow(final/initial, 1.0/years) - 1.0
}

// calculateVolatility calculates population standard deviation
func calculateVolatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// calculateMaxDrawdown calculates maximum peak-to-trough decline of the total series
func calculateMaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := curve[0]

	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}

		drawdown := (peak - v) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}
