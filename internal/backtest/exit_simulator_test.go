package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
)

const day = int64(24 * 60 * 60)

// closesSeries builds one candle per day starting at day 0
func closesSeries(ticker string, closes ...float64) *contracts.TickerSeries {
	candles := make([]contracts.Candle, len(closes))
	for i, c := range closes {
		candles[i] = contracts.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1000, Timestamp: int64(i) * day}
	}
	return &contracts.TickerSeries{Ticker: ticker, Candles: candles}
}

func TestExitSimulator_Exits(t *testing.T) {
	defaults := *contracts.DefaultExitRulesConfig()

	tests := []struct {
		name      string
		rules     contracts.ExitRulesConfig
		closes    []float64
		reason    contracts.ExitReason
		exitIndex int
		returnPct float64
	}{
		{"flat series ends with data", defaults, []float64{10, 10, 10}, contracts.ExitEndOfData, 2, 0},
		{"gain above stop", defaults, []float64{10, 11, 12.5, 20}, contracts.ExitGain, 2, 25},
		{"gain exactly at stop holds", defaults, []float64{10, 12}, contracts.ExitEndOfData, 1, 20},
		{"loss below stop", defaults, []float64{10, 9.5, 9.1, 5}, contracts.ExitLoss, 2, -9},
		{
			"trailing stop from high",
			contracts.ExitRulesConfig{StopGain: 1, StopLoss: 0.5, TrailingStop: 0.1},
			[]float64{10, 15, 13, 30},
			contracts.ExitLoss, 2, 30,
		},
		{
			"close below moving average",
			contracts.ExitRulesConfig{MAExitPeriod: 3},
			[]float64{10, 11, 12, 13, 11, 20},
			contracts.ExitMABreak, 4, 10,
		},
		{
			"time stop",
			contracts.ExitRulesConfig{MaxHoldingSessions: 2},
			[]float64{10, 10, 10, 10},
			contracts.ExitTime, 2, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewExitSimulator(tt.rules, time.UTC)
			trade := sim.Simulate(closesSeries("AAA", tt.closes...), 0)

			require.False(t, trade.IsNoTrade())
			assert.Equal(t, tt.reason, trade.ExitReason)
			assert.Equal(t, int64(tt.exitIndex)*day, trade.ExitTimestamp)
			assert.Equal(t, tt.exitIndex, trade.HeldSessions)
			assert.InDelta(t, tt.returnPct, trade.ReturnPct, 1e-9)
			assert.Equal(t, tt.closes[0], trade.EntryPrice)
		})
	}
}

func TestExitSimulator_TracksExtremes(t *testing.T) {
	sim := NewExitSimulator(contracts.ExitRulesConfig{}, time.UTC)
	trade := sim.Simulate(closesSeries("AAA", 10, 14, 8, 12), 0)

	assert.Equal(t, contracts.ExitEndOfData, trade.ExitReason)
	assert.Equal(t, 14.0, trade.MaxClose)
	assert.Equal(t, 8.0, trade.MinClose)
	assert.Equal(t, time.Unix(3*day, 0).UTC(), trade.ExitDate)
}

func TestExitSimulator_EntersAtFirstCandleAtOrAfter(t *testing.T) {
	sim := NewExitSimulator(*contracts.DefaultExitRulesConfig(), time.UTC)
	trade := sim.Simulate(closesSeries("AAA", 10, 20, 21, 22), day/2)

	assert.Equal(t, day, trade.EntryTimestamp)
	assert.Equal(t, 20.0, trade.EntryPrice)
	assert.Equal(t, time.Unix(day, 0).UTC(), trade.EntryDate)
}

func TestExitSimulator_IgnoresCandlesBeforeEntry(t *testing.T) {
	rules := contracts.ExitRulesConfig{StopGain: 1, StopLoss: 0.5, TrailingStop: 0.1}
	sim := NewExitSimulator(rules, time.UTC)
	trade := sim.Simulate(closesSeries("AAA", 50, 10, 10.5, 10.2), day)

	assert.Equal(t, 10.0, trade.EntryPrice)
	assert.Equal(t, 10.5, trade.MaxClose, "pre-entry high does not seed the trailing stop")
	assert.Equal(t, contracts.ExitEndOfData, trade.ExitReason)
	assert.Equal(t, 2, trade.HeldSessions)
}

func TestExitSimulator_NoTrade(t *testing.T) {
	sim := NewExitSimulator(*contracts.DefaultExitRulesConfig(), time.UTC)

	tests := []struct {
		name   string
		series *contracts.TickerSeries
		entry  int64
	}{
		{"single session", closesSeries("AAA", 10), 0},
		{"entry on last candle", closesSeries("AAA", 10, 11), day},
		{"entry after data", closesSeries("AAA", 10, 11), 5 * day},
		{"no series", nil, 0},
		{"zero entry price", closesSeries("AAA", 0, 11), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := sim.Simulate(tt.series, tt.entry)
			assert.True(t, trade.IsNoTrade())
			assert.Equal(t, contracts.ExitNoTrade, trade.ExitReason)
			assert.Equal(t, contracts.NoTradeTimestamp, trade.EntryTimestamp)
		})
	}
}
