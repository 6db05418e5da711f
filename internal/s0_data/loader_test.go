package s0_data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/logger"
)

func TestShardRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := testArchive()
	require.NoError(t, WriteShards(dir, archive))

	// SPY -> s, AAA -> a, ^VIX -> misc
	for _, key := range []string{"s", "a", "misc"} {
		_, err := os.Stat(filepath.Join(dir, key+ShardSuffix))
		assert.NoError(t, err, key)
	}

	loaded, err := NewShardLoader(LoaderOptions{Dir: dir, Benchmark: "spy", VolatilityIndex: "^vix", Workers: 2}, logger.Nop()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SPY", loaded.Benchmark)
	assert.Equal(t, "^VIX", loaded.VolatilityIndex)
	assert.Equal(t, archive.Tickers(), loaded.Tickers())
	assert.Equal(t, archive.Series["AAA"].Candles, loaded.Series["AAA"].Candles)
}

func TestShardLoader_CorruptShardDegrades(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteShards(dir, testArchive()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z"+ShardSuffix), []byte("not gzip"), 0o644))

	loaded, err := NewShardLoader(LoaderOptions{Dir: dir, Benchmark: "SPY", Workers: 4}, logger.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded.Series, 3)
}

func TestShardLoader_AllShardsFail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"+ShardSuffix), []byte("junk"), 0o644))

	_, err := NewShardLoader(LoaderOptions{Dir: dir, Benchmark: "SPY"}, logger.Nop()).Load(context.Background())
	assert.Error(t, err)
}

func TestShardLoader_EmptyDir(t *testing.T) {
	_, err := NewShardLoader(LoaderOptions{Dir: t.TempDir(), Benchmark: "SPY"}, logger.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, contracts.ErrEmptyArchive)
}

func TestShardLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteShards(dir, testArchive()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewShardLoader(LoaderOptions{Dir: dir, Benchmark: "SPY"}, logger.Nop()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSeries_SortsAndDedupes(t *testing.T) {
	s, err := buildSeries("X", []contracts.Candle{
		{Close: 3, High: 3, Low: 3, Timestamp: 30},
		{Close: 1, High: 1, Low: 1, Timestamp: 10},
		{Close: 2, High: 2, Low: 2, Timestamp: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, int64(10), s.Candles[0].Timestamp)
	assert.Equal(t, 2.0, s.Candles[1].Close, "last duplicate wins")

	_, err = buildSeries("Y", []contracts.Candle{{Close: 1, High: 1, Low: 1, Volume: -5, Timestamp: 1}})
	assert.ErrorIs(t, err, contracts.ErrInvalidCandle)
}

func TestShardKey(t *testing.T) {
	assert.Equal(t, "a", ShardKey("AAPL"))
	assert.Equal(t, "misc", ShardKey("^VIX"))
	assert.Equal(t, "misc", ShardKey(""))
}

func TestTickerFromDBNPath(t *testing.T) {
	assert.Equal(t, "MSFT", TickerFromDBNPath("/data/msft.dbn.zst"))
	assert.Equal(t, "SPY", TickerFromDBNPath("SPY.dbn"))
}

func TestDBNLoader_EmptyDir(t *testing.T) {
	_, err := NewDBNLoader(LoaderOptions{Dir: t.TempDir(), Benchmark: "SPY"}, logger.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, contracts.ErrEmptyArchive)
}

func TestNewLoader(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Format: "shards", Dir: "x", Benchmark: "SPY", Workers: 1}}
	l, err := NewLoader(cfg, nil, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ShardLoader{}, l)

	cfg.Archive.Format = "dbn"
	l, err = NewLoader(cfg, nil, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &DBNLoader{}, l)

	cfg.Archive.Format = "postgres"
	_, err = NewLoader(cfg, nil, logger.Nop())
	assert.Error(t, err)
}

func TestCheckQuality(t *testing.T) {
	report, err := CheckQuality(testArchive(), 25, 0.5, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Tickers)
	assert.Equal(t, 2, report.RankableCount) // SPY, ^VIX
	assert.Equal(t, 1, report.StaleCount)    // AAA ends on day 24
	assert.InDelta(t, 2.0/3.0, report.Coverage, 1e-9)
	assert.True(t, report.HasBenchmark)
	assert.True(t, report.Passed)
}
