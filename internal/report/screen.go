package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

var screenSheetHeader = []string{
	"Ticker", "Market Cap", "Close Price", "Above SMA20", "Above SMA200", "Date", "Price Change", "Volume Change",
}

// SheetOptions selects the signal windows shown in the screen sheet
type SheetOptions struct {
	FastSMA        int // 22
	SlowSMA        int // 200
	VolumeLookback int // 2
	AvgVolume      int // 100
}

// DefaultSheetOptions returns the windows of the default rule set
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{FastSMA: 22, SlowSMA: 200, VolumeLookback: 2, AvgVolume: 100}
}

// SheetRow is the human-readable view of one passing candidate
type SheetRow struct {
	Ticker       string
	MarketCap    float64 // 0 = 알 수 없음
	Close        float64
	AboveFast    float64 // 퍼센트
	AboveSlow    float64
	VolumeDate   time.Time
	PriceChange  float64
	VolumeChange float64
}

// Record formats the row the way the screen sheet prints values
func (r SheetRow) Record() []string {
	mc := ""
	if r.MarketCap > 0 {
		mc = fmt.Sprintf("%6.2fB", r.MarketCap/1e9)
	}
	date := ""
	if !r.VolumeDate.IsZero() {
		date = r.VolumeDate.Format("2006-01-02")
	}
	return []string{
		r.Ticker,
		mc,
		fmt.Sprintf("%7.2f$", r.Close),
		fmt.Sprintf("%6.2f%%", r.AboveFast),
		fmt.Sprintf("%6.2f%%", r.AboveSlow),
		date,
		fmt.Sprintf("%5.2f%%", r.PriceChange),
		fmt.Sprintf("%6.2f%%", r.VolumeChange),
	}
}

// BuildSheet converts passing screen results into sheet rows ordered by ticker
// fundamentals may be nil, the market cap column is then left empty.
func BuildSheet(ctx context.Context, results []contracts.ScreenResult, fundamentals contracts.FundamentalsSource, opts SheetOptions, loc *time.Location) []SheetRow {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]SheetRow, 0, len(results))
	for _, r := range results {
		if !r.Passed {
			continue
		}
		sig := r.Signals
		row := SheetRow{
			Ticker:      r.Ticker,
			Close:       sig["close"],
			AboveFast:   sig[fmt.Sprintf("close_to_sma_%d", opts.FastSMA)],
			AboveSlow:   sig[fmt.Sprintf("close_to_sma_%d", opts.SlowSMA)],
			PriceChange: sig[fmt.Sprintf("high_volume_%d_change", opts.VolumeLookback)],
		}
		if ts, ok := sig[fmt.Sprintf("high_volume_%d_timestamp", opts.VolumeLookback)]; ok {
			row.VolumeDate = time.Unix(int64(ts), 0).In(loc)
		}
		hv := sig[fmt.Sprintf("high_volume_%d", opts.VolumeLookback)]
		if avg := sig[fmt.Sprintf("avg_volume_%d", opts.AvgVolume)]; avg != 0 {
			row.VolumeChange = (hv - avg) * 100 / avg
		}
		if fundamentals != nil {
			if f := fundamentals.Lookup(ctx, r.Ticker); f.Known {
				row.MarketCap = f.MarketCap
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })
	return rows
}

// WriteScreenSheet writes the sheet rows as CSV
func WriteScreenSheet(w io.Writer, rows []SheetRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(screenSheetHeader); err != nil {
		return fmt.Errorf("write sheet header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write sheet row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
