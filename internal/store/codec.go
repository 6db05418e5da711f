package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// DateLayout keys every stored session
const DateLayout = "2006-01-02"

// Ranking columns, the first seven match the legacy rs_stocks export
var rankingHeader = []string{
	"Rank", "Ticker", "Relative Strength", "Percentile",
	"1 Month Ago", "3 Months Ago", "6 Months Ago",
	"RS 1 Month Ago", "RS 3 Months Ago", "RS 6 Months Ago",
}

var screenHeader = []string{
	"Ticker", "Date", "Rank", "Relative Strength", "Percentile",
	"Passed", "Failed Gate", "Scores", "Signals",
}

var tradeHeader = []string{
	"Ticker", "Session Date", "Entry Date", "Entry Timestamp", "Entry Price",
	"Exit Date", "Exit Timestamp", "Exit Price", "Return Pct", "Held Sessions",
	"Max Close", "Min Close", "Exit Reason",
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeMap(m map[string]float64) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(s string) (map[string]float64, error) {
	m := map[string]float64{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func rankingRecord(r contracts.RankedTicker) []string {
	return []string{
		strconv.Itoa(r.Rank), r.Ticker, formatFloat(r.RS), strconv.Itoa(r.Percentile),
		strconv.Itoa(r.Percentile1M), strconv.Itoa(r.Percentile3M), strconv.Itoa(r.Percentile6M),
		formatFloat(r.RS1M), formatFloat(r.RS3M), formatFloat(r.RS6M),
	}
}

// parseRankingRecord accepts legacy files without the raw RS columns
func parseRankingRecord(col map[string]int, rec []string) (contracts.RankedTicker, error) {
	var r contracts.RankedTicker
	var err error
	p := fieldParser{col: col, rec: rec}

	r.Ticker = p.text("Ticker")
	if r.Rank, err = p.intField("Rank"); err != nil {
		return r, err
	}
	if r.RS, err = p.floatField("Relative Strength"); err != nil {
		return r, err
	}
	if r.Percentile, err = p.intField("Percentile"); err != nil {
		return r, err
	}
	if r.Percentile1M, err = p.intField("1 Month Ago"); err != nil {
		return r, err
	}
	if r.Percentile3M, err = p.intField("3 Months Ago"); err != nil {
		return r, err
	}
	if r.Percentile6M, err = p.intField("6 Months Ago"); err != nil {
		return r, err
	}
	if r.RS1M, err = p.floatField("RS 1 Month Ago"); err != nil {
		return r, err
	}
	if r.RS3M, err = p.floatField("RS 3 Months Ago"); err != nil {
		return r, err
	}
	if r.RS6M, err = p.floatField("RS 6 Months Ago"); err != nil {
		return r, err
	}
	return r, nil
}

func screenRecord(r contracts.ScreenResult) ([]string, error) {
	scores, err := encodeMap(r.ScoreDetail)
	if err != nil {
		return nil, err
	}
	signals, err := encodeMap(r.Signals)
	if err != nil {
		return nil, err
	}
	return []string{
		r.Ticker, formatDate(r.Date), strconv.Itoa(r.Rank), formatFloat(r.RS), strconv.Itoa(r.Percentile),
		strconv.FormatBool(r.Passed), r.FailedGate, scores, signals,
	}, nil
}

func parseScreenRecord(col map[string]int, rec []string, loc *time.Location) (contracts.ScreenResult, error) {
	var r contracts.ScreenResult
	var err error
	p := fieldParser{col: col, rec: rec}

	r.Ticker = p.text("Ticker")
	r.FailedGate = p.text("Failed Gate")
	if r.Date, err = parseDate(p.text("Date"), loc); err != nil {
		return r, err
	}
	if r.Rank, err = p.intField("Rank"); err != nil {
		return r, err
	}
	if r.RS, err = p.floatField("Relative Strength"); err != nil {
		return r, err
	}
	if r.Percentile, err = p.intField("Percentile"); err != nil {
		return r, err
	}
	if r.Passed, err = strconv.ParseBool(p.text("Passed")); err != nil {
		return r, err
	}
	if r.ScoreDetail, err = decodeMap(p.text("Scores")); err != nil {
		return r, err
	}
	if r.Signals, err = decodeMap(p.text("Signals")); err != nil {
		return r, err
	}
	return r, nil
}

func tradeRecord(t contracts.Trade) []string {
	return []string{
		t.Ticker, formatDate(t.SessionDate), formatDate(t.EntryDate),
		strconv.FormatInt(t.EntryTimestamp, 10), formatFloat(t.EntryPrice),
		formatDate(t.ExitDate), strconv.FormatInt(t.ExitTimestamp, 10), formatFloat(t.ExitPrice),
		formatFloat(t.ReturnPct), strconv.Itoa(t.HeldSessions),
		formatFloat(t.MaxClose), formatFloat(t.MinClose), string(t.ExitReason),
	}
}

func parseTradeRecord(col map[string]int, rec []string, loc *time.Location) (contracts.Trade, error) {
	var t contracts.Trade
	var err error
	p := fieldParser{col: col, rec: rec}

	t.Ticker = p.text("Ticker")
	t.ExitReason = contracts.ExitReason(p.text("Exit Reason"))
	if t.SessionDate, err = parseDate(p.text("Session Date"), loc); err != nil {
		return t, err
	}
	if t.EntryDate, err = parseDate(p.text("Entry Date"), loc); err != nil {
		return t, err
	}
	if t.ExitDate, err = parseDate(p.text("Exit Date"), loc); err != nil {
		return t, err
	}
	if t.EntryTimestamp, err = p.int64Field("Entry Timestamp"); err != nil {
		return t, err
	}
	if t.ExitTimestamp, err = p.int64Field("Exit Timestamp"); err != nil {
		return t, err
	}
	if t.EntryPrice, err = p.floatField("Entry Price"); err != nil {
		return t, err
	}
	if t.ExitPrice, err = p.floatField("Exit Price"); err != nil {
		return t, err
	}
	if t.ReturnPct, err = p.floatField("Return Pct"); err != nil {
		return t, err
	}
	if t.HeldSessions, err = p.intField("Held Sessions"); err != nil {
		return t, err
	}
	if t.MaxClose, err = p.floatField("Max Close"); err != nil {
		return t, err
	}
	if t.MinClose, err = p.floatField("Min Close"); err != nil {
		return t, err
	}
	return t, nil
}

// fieldParser reads columns by header name, absent optional columns read as zero
type fieldParser struct {
	col map[string]int
	rec []string
}

func (p fieldParser) text(name string) string {
	i, ok := p.col[name]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return p.rec[i]
}

func (p fieldParser) floatField(name string) (float64, error) {
	s := p.text(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func (p fieldParser) intField(name string) (int, error) {
	s := p.text(name)
	if s == "" {
		return 0, nil
	}
	// 레거시 파일은 백분위를 "85.0"으로 저장하기도 함
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return int(v), nil
}

func (p fieldParser) int64Field(name string) (int64, error) {
	s := p.text(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	return col
}
