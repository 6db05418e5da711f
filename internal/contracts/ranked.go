package contracts

import "time"

// RankedTicker is one row of a session's RS ranking table
// ⭐ SSOT: S1 → S3 RS 랭킹 결과 전달
type RankedTicker struct {
	Ticker       string  `json:"ticker"`
	RS           float64 `json:"rs"`
	Percentile   int     `json:"percentile"` // 0 ~ 99
	RS1M         float64 `json:"rs_1m"`
	RS3M         float64 `json:"rs_3m"`
	RS6M         float64 `json:"rs_6m"`
	Percentile1M int     `json:"percentile_1m"`
	Percentile3M int     `json:"percentile_3m"`
	Percentile6M int     `json:"percentile_6m"`
	Rank         int     `json:"rank"` // 1-based
}

// RankingTable is the ranked universe of one trading session
type RankingTable struct {
	SessionDate time.Time      `json:"session_date"`
	Rows        []RankedTicker `json:"rows"` // Rank 오름차순
}

// Tickers returns ranked tickers in rank order
func (t *RankingTable) Tickers() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Ticker
	}
	return out
}

// Top returns the first fraction of rows, at least one when the table is not empty
func (t *RankingTable) Top(fraction float64) []RankedTicker {
	if len(t.Rows) == 0 || fraction <= 0 {
		return nil
	}
	if fraction >= 1 {
		return t.Rows
	}
	n := int(float64(len(t.Rows)) * fraction)
	if n < 1 {
		n = 1
	}
	return t.Rows[:n]
}

// Find returns the row for a ticker
func (t *RankingTable) Find(ticker string) (RankedTicker, bool) {
	for _, r := range t.Rows {
		if r.Ticker == ticker {
			return r, true
		}
	}
	return RankedTicker{}, false
}
