package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rs/internal/contracts"
)

func tradesWithReturns(returns ...float64) []contracts.Trade {
	out := make([]contracts.Trade, len(returns))
	for i, r := range returns {
		out[i] = contracts.Trade{Ticker: "T", ReturnPct: r}
	}
	return out
}

func TestCalculateVaR(t *testing.T) {
	returns := []float64{-10, -5, 0, 5, 10, 15, 20, 25, 30, 35}

	tests := []struct {
		name       string
		confidence float64
		wantVaR    float64
		wantCVaR   float64
	}{
		{"85%", 0.85, 5, 7.5}, // idx 1
		{"95%", 0.95, 10, 10}, // idx 0
		{"50%", 0.50, 0, 0},   // idx 5, tail mean 2.5 is a gain
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateVaR(returns, tt.confidence)
			assert.InDelta(t, tt.wantVaR, got.VaR, 1e-9)
			assert.InDelta(t, tt.wantCVaR, got.CVaR, 1e-9)
		})
	}
}

func TestCalculateVaR_Empty(t *testing.T) {
	got := CalculateVaR(nil, 0.95)
	assert.Equal(t, VaRResult{Confidence: 0.95}, got)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 3.0, Percentile(sorted, 50))
	assert.Equal(t, 5.0, Percentile(sorted, 100))
	assert.InDelta(t, 1.2, Percentile(sorted, 5), 1e-9)
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 2.138089935, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-6)
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestAnalyze_ConstantReturnsAreDeterministic(t *testing.T) {
	cfg := DefaultMonteCarloConfig()
	cfg.NumSimulations = 50
	cfg.MinSamples = 3
	cfg.Seed = 7
	cfg.PositionFraction = 1

	report, err := Analyze(context.Background(), tradesWithReturns(10, 10, 10), cfg)
	require.NoError(t, err)
	require.True(t, report.Simulated)

	// 1.1^3 - 1 = 33.1%
	assert.InDelta(t, 33.1, report.FinalReturn.P50, 1e-9)
	assert.InDelta(t, 33.1, report.FinalReturn.P5, 1e-9)
	assert.Equal(t, 0.0, report.MaxDrawdown.P95)
	assert.Equal(t, 0.0, report.LossProb)
	assert.Equal(t, 3, report.Trades)
	require.Len(t, report.VaR, 2)
	assert.Equal(t, 0.0, report.VaR[0].VaR)
}

func TestAnalyze_AllLosses(t *testing.T) {
	cfg := DefaultMonteCarloConfig()
	cfg.NumSimulations = 20
	cfg.MinSamples = 2
	cfg.Seed = 1

	report, err := Analyze(context.Background(), tradesWithReturns(-5, -5), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.LossProb)
	assert.Greater(t, report.MaxDrawdown.P50, 0.0)
}

func TestAnalyze_BelowMinSamplesSkipsSimulation(t *testing.T) {
	report, err := Analyze(context.Background(), tradesWithReturns(1, -1), DefaultMonteCarloConfig())
	require.NoError(t, err)
	assert.False(t, report.Simulated)
	assert.InDelta(t, 0.0, report.MeanReturn, 1e-9)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(context.Background(), nil, DefaultMonteCarloConfig())
	assert.ErrorIs(t, err, ErrInsufficientData)

	bad := DefaultMonteCarloConfig()
	bad.PositionFraction = 0
	_, err = Analyze(context.Background(), tradesWithReturns(1), bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad = DefaultMonteCarloConfig()
	bad.ConfidenceLevels = []float64{1.5}
	_, err = Analyze(context.Background(), tradesWithReturns(1), bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnalyze_Cancelled(t *testing.T) {
	cfg := DefaultMonteCarloConfig()
	cfg.MinSamples = 1
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, tradesWithReturns(1, 2), cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
