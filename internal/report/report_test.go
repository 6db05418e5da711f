package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
)

func TestTradingViewRating(t *testing.T) {
	table := &contracts.RankingTable{Rows: []contracts.RankedTicker{
		{Ticker: "A", RS: 150.25, Percentile: 98, Rank: 1},
		{Ticker: "B", RS: 149, Percentile: 98, Rank: 2},
		{Ticker: "C", RS: 120, Percentile: 89, Rank: 3},
		{Ticker: "D", RS: 80.5, Percentile: 1, Rank: 4},
	}}
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	lines := strings.Split(strings.TrimSuffix(TradingViewRating(table, asOf), "\n"), "\n")
	require.Len(t, lines, 15)

	// 오래된 날짜부터 98, 89, 1 순서로 출력 (9, 29, 49, 69 없음)
	assert.Equal(t, "20240229T,0,1000,0,150.25,0", lines[0])
	assert.Equal(t, "20240304T,0,1000,0,150.25,0", lines[4])
	assert.Equal(t, "20240305T,0,1000,0,120.0,0", lines[5])
	assert.Equal(t, "20240310T,0,1000,0,80.5,0", lines[10])
	assert.Equal(t, "20240314T,0,1000,0,80.5,0", lines[14])
}

func TestTradingViewRating_EmptyTable(t *testing.T) {
	assert.Empty(t, TradingViewRating(nil, time.Now()))
	assert.Empty(t, TradingViewRating(&contracts.RankingTable{}, time.Now()))
}

func TestFormatRS(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.0"},
		{99.5, "99.5"},
		{-3.25, "-3.25"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRS(tt.in))
	}
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestTimelineRecord(t *testing.T) {
	tests := []struct {
		name string
		ev   contracts.LedgerEvent
		want []string
	}{
		{
			name: "buy",
			ev: contracts.LedgerEvent{Date: jan(2), Action: contracts.ActionBuy, Ticker: "AAA",
				Cash: 50, CashChange: -50, Holding: 50, HoldingCount: 1, HoldingChange: 50, Total: 100},
			want: []string{"2024-01-02", "Buy", "AAA", "", "50.00", "-50.00", "50.00 (1)", "+50.00", "100.00"},
		},
		{
			name: "sell",
			ev: contracts.LedgerEvent{Date: jan(5), Action: contracts.ActionSell, Ticker: "AAA", ProfitPct: 10,
				Cash: 105, CashChange: 55, Holding: 0, HoldingChange: -50, Total: 105},
			want: []string{"2024-01-05", "Sell", "AAA", "10.0%", "105.00", "+55.00", "0.00 (0)", "-50.00", "105.00"},
		},
		{
			name: "no cash",
			ev:   contracts.LedgerEvent{Date: jan(3), Action: contracts.ActionNoCash, Ticker: "BBB", Holding: 100, HoldingCount: 2, Total: 100},
			want: []string{"2024-01-03", "No cash", "BBB", "", "0.00", "", "100.00 (2)", "", "100.00"},
		},
		{
			name: "end of simulation",
			ev: contracts.LedgerEvent{Date: jan(9), Action: contracts.ActionSell, Ticker: "CCC", ProfitPct: -2.5,
				Cash: 97.5, CashChange: 97.5, HoldingChange: -100, Total: 97.5, EndOfSimulation: true},
			want: []string{"End", "Sell", "CCC", "-2.5%", "97.50", "+97.50", "0.00 (0)", "-100.00", "97.50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimelineRecord(tt.ev))
		})
	}
}

func TestWriteTimelineCSV(t *testing.T) {
	summary := &contracts.LedgerSummary{Events: []contracts.LedgerEvent{
		{Date: jan(2), Action: contracts.ActionBuy, Ticker: "AAA", Cash: 0, CashChange: -100, Holding: 100, HoldingCount: 1, HoldingChange: 100, Total: 100},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTimelineCSV(&buf, summary))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, timelineHeader, records[0])
	assert.Equal(t, "Buy", records[1][1])
}

func TestWriteTimelineJSON(t *testing.T) {
	summary := &contracts.LedgerSummary{InitialCash: 100, FinalCash: 110, Performance: 0.1}

	var buf bytes.Buffer
	require.NoError(t, WriteTimelineJSON(&buf, summary))

	var got contracts.LedgerSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 110.0, got.FinalCash)
	assert.Equal(t, "10.00%, 0 no cash events / 0 trades taken", Performance(&got))
}

type staticFundamentals map[string]float64

func (s staticFundamentals) Lookup(_ context.Context, ticker string) contracts.Fundamentals {
	mc, ok := s[ticker]
	if !ok {
		return contracts.UnknownFundamentals(ticker)
	}
	return contracts.Fundamentals{Ticker: ticker, MarketCap: mc, Known: true}
}

func TestBuildSheet(t *testing.T) {
	volumeDay := jan(11)
	results := []contracts.ScreenResult{
		{Ticker: "ZZZ", Passed: true, Signals: map[string]float64{
			"close": 50, "close_to_sma_22": 5, "close_to_sma_200": 20,
			"high_volume_2": 300, "high_volume_2_change": 2.5,
			"high_volume_2_timestamp": float64(volumeDay.Unix()), "avg_volume_100": 100,
		}},
		{Ticker: "AAA", Passed: true, Signals: map[string]float64{"close": 12.5}},
		{Ticker: "FAIL", Passed: false},
	}

	rows := BuildSheet(context.Background(), results, staticFundamentals{"ZZZ": 25e9}, DefaultSheetOptions(), time.UTC)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAA", rows[0].Ticker)

	z := rows[1]
	assert.Equal(t, 25e9, z.MarketCap)
	assert.InDelta(t, 200.0, z.VolumeChange, 1e-9)
	assert.True(t, volumeDay.Equal(z.VolumeDate))
	assert.Equal(t, []string{"ZZZ", " 25.00B", "  50.00$", "  5.00%", " 20.00%", "2024-01-11", " 2.50%", "200.00%"}, z.Record())

	assert.Equal(t, []string{"AAA", "", "  12.50$", "  0.00%", "  0.00%", "", " 0.00%", "  0.00%"}, rows[0].Record())
}

func TestWriteScreenSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScreenSheet(&buf, []SheetRow{{Ticker: "AAA", Close: 1}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, screenSheetHeader, records[0])
	assert.Equal(t, "AAA", records[1][0])
}
