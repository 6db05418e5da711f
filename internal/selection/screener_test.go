package selection

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/pkg/logger"
)

type staticFundamentals map[string]contracts.Fundamentals

func (f staticFundamentals) Lookup(_ context.Context, ticker string) contracts.Fundamentals {
	if v, ok := f[ticker]; ok {
		return v
	}
	return contracts.UnknownFundamentals(ticker)
}

var screenSession = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func screenFixture() (*contracts.Snapshot, *contracts.RankingTable) {
	archive := contracts.NewPriceArchive("SPY", "^VIX")
	archive.Series["SPY"] = ramp("SPY", 30, 100, 0)
	archive.Series["ZUP"] = ramp("ZUP", 30, 10, 1)
	archive.Series["AUP"] = ramp("AUP", 30, 10, 1)
	archive.Series["MDOWN"] = ramp("MDOWN", 30, 50, -1)

	snap := &contracts.Snapshot{PriceArchive: *archive, SessionDate: screenSession}
	table := &contracts.RankingTable{SessionDate: screenSession, Rows: []contracts.RankedTicker{
		{Ticker: "ZUP", RS: 150, Percentile: 99, Rank: 1},
		{Ticker: "MDOWN", RS: 140, Percentile: 98, Rank: 2},
		{Ticker: "AUP", RS: 130, Percentile: 97, Rank: 3},
		{Ticker: "GONE", RS: 120, Percentile: 96, Rank: 4},
	}}
	return snap, table
}

func smaOnly(enabled bool) Config {
	return Config{
		CandidateFraction: 1,
		Gates: []GateSpec{
			{Name: "above_sma5", Type: GatePriceAboveSMA, Enabled: enabled, Params: map[string]float64{"window": 5}},
		},
	}
}

func TestScreener_EvaluateOrdersByTicker(t *testing.T) {
	snap, table := screenFixture()
	reg := metrics.NewRegistry()
	s, err := NewScreener(smaOnly(true), nil, reg, logger.Nop())
	require.NoError(t, err)

	all, err := s.Evaluate(context.Background(), snap, table)
	require.NoError(t, err)
	require.Len(t, all, 3, "ticker without data is dropped")

	assert.Equal(t, []string{"AUP", "MDOWN", "ZUP"}, []string{all[0].Ticker, all[1].Ticker, all[2].Ticker})
	assert.True(t, all[0].Passed)
	assert.False(t, all[1].Passed)
	assert.Equal(t, "above_sma5", all[1].FailedGate)
	assert.Equal(t, 3, all[0].Rank)
	assert.Equal(t, screenSession, all[0].Date)
	assert.Contains(t, all[0].Signals, "sma_5")
	assert.Contains(t, all[0].ScoreDetail, "above_sma5")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GateDrops.WithLabelValues("above_sma5")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.ScreenPassed))
}

func TestScreener_ScreenReturnsPassingOnly(t *testing.T) {
	snap, table := screenFixture()
	s, err := NewScreener(smaOnly(true), nil, nil, logger.Nop())
	require.NoError(t, err)

	passed, err := s.Screen(context.Background(), snap, table)
	require.NoError(t, err)
	assert.Len(t, passed, 2)
	for _, r := range passed {
		assert.True(t, r.Passed)
	}
}

func TestScreener_GateToggling(t *testing.T) {
	snap, table := screenFixture()
	s, err := NewScreener(smaOnly(false), nil, nil, logger.Nop())
	require.NoError(t, err)
	assert.Empty(t, s.Gates())

	passed, err := s.Screen(context.Background(), snap, table)
	require.NoError(t, err)
	assert.Len(t, passed, 3, "no enabled gate means every candidate with data passes")
}

func TestScreener_CandidateFraction(t *testing.T) {
	snap, table := screenFixture()
	cfg := smaOnly(false)
	cfg.CandidateFraction = 0.5

	s, err := NewScreener(cfg, nil, nil, logger.Nop())
	require.NoError(t, err)

	all, err := s.Evaluate(context.Background(), snap, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"MDOWN", "ZUP"}, []string{all[0].Ticker, all[1].Ticker})
}

func TestScreener_FundamentalGateUsesSource(t *testing.T) {
	snap, table := screenFixture()
	cfg := smaOnly(true)
	cfg.Gates = append(cfg.Gates, GateSpec{Name: "cap", Type: GateMarketCap, Enabled: true, Params: map[string]float64{"min": 10e9, "max": 100e9}})

	source := staticFundamentals{"ZUP": {Ticker: "ZUP", MarketCap: 20e9, Known: true}}
	s, err := NewScreener(cfg, source, nil, logger.Nop())
	require.NoError(t, err)

	passed, err := s.Screen(context.Background(), snap, table)
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, "ZUP", passed[0].Ticker)
	assert.InDelta(t, 20.0, passed[0].ScoreDetail["cap"], 1e-9)
}

func TestNewScreener_InvalidGate(t *testing.T) {
	_, err := NewScreener(Config{Gates: []GateSpec{{Name: "x", Type: "nope", Enabled: true}}}, nil, nil, logger.Nop())
	assert.Error(t, err)
}
