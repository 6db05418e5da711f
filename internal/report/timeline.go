package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// TimelineFile is the default timeline export name
const TimelineFile = "screen_results_timeline.csv"

// EndDate labels the force-release rows of the final book close
const EndDate = "End"

var timelineHeader = []string{
	"Date", "Action", "Ticker", "Profit", "Cash", "Cash Change", "Holding", "Holding Change", "Total",
}

// TimelineRecord formats one ledger event as a timeline row
// Profit is only set on sells, balance changes are empty on "No cash" rows.
func TimelineRecord(ev contracts.LedgerEvent) []string {
	date := ev.Date.Format("2006-01-02")
	if ev.EndOfSimulation {
		date = EndDate
	}

	rec := []string{
		date,
		string(ev.Action),
		ev.Ticker,
		"",
		fmt.Sprintf("%.2f", ev.Cash),
		"",
		fmt.Sprintf("%.2f (%d)", ev.Holding, ev.HoldingCount),
		"",
		fmt.Sprintf("%.2f", ev.Total),
	}

	switch ev.Action {
	case contracts.ActionSell:
		rec[3] = formatRS(ev.ProfitPct) + "%"
		rec[5] = fmt.Sprintf("%+.2f", ev.CashChange)
		rec[7] = fmt.Sprintf("%+.2f", ev.HoldingChange)
	case contracts.ActionBuy:
		rec[5] = fmt.Sprintf("%+.2f", ev.CashChange)
		rec[7] = fmt.Sprintf("%+.2f", ev.HoldingChange)
	}
	return rec
}

// WriteTimelineCSV writes every ledger event in order
func WriteTimelineCSV(w io.Writer, summary *contracts.LedgerSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(timelineHeader); err != nil {
		return fmt.Errorf("write timeline header: %w", err)
	}
	if summary != nil {
		for _, ev := range summary.Events {
			if err := cw.Write(TimelineRecord(ev)); err != nil {
				return fmt.Errorf("write timeline row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTimelineJSON writes the full summary, metrics included
func WriteTimelineJSON(w io.Writer, summary *contracts.LedgerSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return nil
}

// Performance returns the one-line run summary printed after a timeline
func Performance(summary *contracts.LedgerSummary) string {
	return fmt.Sprintf("%.2f%%, %d no cash events / %d trades taken",
		summary.Performance*100, summary.TradesSkipped, summary.TradesTaken)
}
