package s0_data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
)

func TestTakeSnapshot_TruncatesAtCutoff(t *testing.T) {
	archive := testArchive()
	cutoff := 14 * day

	snap := TakeSnapshot(archive, cutoff, time.UTC)

	require.Contains(t, snap.Series, "SPY")
	assert.Equal(t, 15, snap.Series["SPY"].Len())
	assert.Equal(t, 5, snap.Series["AAA"].Len())

	for ticker, s := range snap.Series {
		for _, c := range s.Candles {
			assert.LessOrEqual(t, c.Timestamp, cutoff, ticker)
		}
	}
	assert.Equal(t, cutoff, snap.Cutoff)
	assert.Equal(t, "SPY", snap.Benchmark)
}

func TestTakeSnapshot_DoesNotMutateArchive(t *testing.T) {
	archive := testArchive()
	before := archive.Series["SPY"].Len()

	snap := TakeSnapshot(archive, 5*day, time.UTC)
	s := snap.Series["SPY"]
	s.Candles = append(s.Candles, contracts.Candle{Close: -1, Timestamp: 999 * day})

	assert.Equal(t, before, archive.Series["SPY"].Len())
	assert.Equal(t, 106.0, archive.Series["SPY"].Candles[6].Close, "append must not overwrite archive storage")
}

func TestTakeSnapshot_DropsTickersWithoutHistory(t *testing.T) {
	snap := TakeSnapshot(testArchive(), 3*day, time.UTC)
	assert.NotContains(t, snap.Series, "AAA")
	assert.Empty(t, snap.Universe())
}

func TestCalendar_PicksLongestHistory(t *testing.T) {
	cal, err := NewCalendar(testArchive(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "SPY", cal.Ticker())
	assert.Equal(t, 30, cal.Len())
}

func TestFindNearestTradingDate(t *testing.T) {
	archive := contracts.NewPriceArchive("SPY", "")
	// 월~금 세션만 존재 (1970-01-01 목요일 = day 0)
	var candles []contracts.Candle
	for d := int64(4); d < 40; d++ {
		if wd := time.Unix(d*day, 0).UTC().Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		candles = append(candles, contracts.Candle{Close: 1, Timestamp: d * day})
	}
	archive.Series["SPY"] = &contracts.TickerSeries{Ticker: "SPY", Candles: candles}

	tests := []struct {
		name   string
		target int64
		want   int64
	}{
		{"exact session", 7 * day, 7 * day},
		{"saturday resolves to friday", 9 * day, 8 * day},
		{"sunday resolves to monday", 10 * day, 11 * day},
		{"before first session", 0, 4 * day},
		{"after last session", 100 * day, candles[len(candles)-1].Timestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindNearestTradingDate(archive, time.Unix(tt.target, 0).UTC(), time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalendar_NearestIdempotentOnSessions(t *testing.T) {
	cal, err := NewCalendar(testArchive(), time.UTC)
	require.NoError(t, err)
	for _, c := range testArchive().Series["SPY"].Candles {
		assert.Equal(t, c.Timestamp, cal.NearestTimestamp(c.Timestamp))
	}
}

func TestCalendar_TieChoosesEarlierSession(t *testing.T) {
	archive := contracts.NewPriceArchive("SPY", "")
	archive.Series["SPY"] = &contracts.TickerSeries{Ticker: "SPY", Candles: []contracts.Candle{
		{Close: 1, Timestamp: 2 * day},
		{Close: 1, Timestamp: 4 * day},
	}}
	cal, err := NewCalendar(archive, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2*day, cal.NearestTimestamp(3*day))
}

func TestFindNearestTradingDate_EmptyArchive(t *testing.T) {
	_, err := FindNearestTradingDate(contracts.NewPriceArchive("SPY", ""), time.Now(), time.UTC)
	assert.ErrorIs(t, err, contracts.ErrEmptyArchive)
}

func TestSessionDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-15 20:00 UTC = 16:00 뉴욕
	ts := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC).Unix()
	got := SessionDate(ts, ny)
	assert.Equal(t, "2024-03-15", got.Format("2006-01-02"))
	assert.Equal(t, 0, got.Hour())
}

func TestCalendar_ResolveDate(t *testing.T) {
	cal, err := NewCalendar(testArchive(), time.UTC)
	require.NoError(t, err)

	got := cal.ResolveDate(time.Date(1970, 1, 5, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, cal.Location())
}
