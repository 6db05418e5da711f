package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandle(t *testing.T) {
	tests := []struct {
		name    string
		open    float64
		high    float64
		low     float64
		close   float64
		volume  float64
		wantErr bool
	}{
		{"valid", 10, 12, 9, 11, 1000, false},
		{"zero volume", 10, 12, 9, 11, 0, false},
		{"negative volume", 10, 12, 9, 11, -1, true},
		{"high below low", 10, 8, 9, 11, 100, true},
		{"negative close", 10, 12, 9, -11, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCandle(tt.open, tt.high, tt.low, tt.close, tt.volume, 1700000000)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidCandle))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewTickerSeries_Ordering(t *testing.T) {
	ok := []Candle{{Close: 1, Timestamp: 1}, {Close: 2, Timestamp: 2}, {Close: 3, Timestamp: 5}}
	s, err := NewTickerSeries("AAA", ok)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{1, 2, 3}, s.Closes())

	last, found := s.Last()
	assert.True(t, found)
	assert.Equal(t, int64(5), last.Timestamp)

	_, err = NewTickerSeries("BBB", []Candle{{Timestamp: 2}, {Timestamp: 2}})
	assert.True(t, errors.Is(err, ErrUnorderedSeries))

	empty, err := NewTickerSeries("CCC", nil)
	require.NoError(t, err)
	_, found = empty.Last()
	assert.False(t, found)
}

func TestCandle_DayChange(t *testing.T) {
	c := Candle{Open: 99, Close: 100}
	assert.InDelta(t, 1.0, c.DayChange(), 1e-9)
	assert.Equal(t, 0.0, Candle{Open: 1}.DayChange())
}

func TestRankingTable_Top(t *testing.T) {
	table := &RankingTable{Rows: make([]RankedTicker, 12)}
	for i := range table.Rows {
		table.Rows[i] = RankedTicker{Ticker: string(rune('A' + i)), Rank: i + 1}
	}

	assert.Len(t, table.Top(0.2), 2)
	assert.Len(t, table.Top(1), 12)
	assert.Len(t, table.Top(0.01), 1)
	assert.Nil(t, table.Top(0))

	row, ok := table.Find("C")
	assert.True(t, ok)
	assert.Equal(t, 3, row.Rank)
}

func TestStage_ShortName(t *testing.T) {
	for i, s := range AllStages() {
		assert.Equal(t, "S"+string(rune('0'+i)), s.ShortName())
		assert.True(t, IsValidStage(string(s)))
	}
	assert.False(t, IsValidStage("S9_NOPE"))
}

func TestNoTrade(t *testing.T) {
	tr := NoTrade("ZZZ")
	assert.True(t, tr.IsNoTrade())
	assert.Equal(t, int64(-1), tr.EntryTimestamp)
	assert.False(t, tr.IsWin())
}
