package contracts

import "time"

// ScreenResult is one evaluated candidate of a session screen
// ⭐ SSOT: S3 → S4 스크리닝 결과 전달
type ScreenResult struct {
	Ticker      string             `json:"ticker"`
	Date        time.Time          `json:"date"`
	Rank        int                `json:"rank"`
	RS          float64            `json:"rs"`
	Percentile  int                `json:"percentile"`
	Passed      bool               `json:"passed"`
	FailedGate  string             `json:"failed_gate,omitempty"`
	ScoreDetail map[string]float64 `json:"score_detail"`  // 게이트별 점수
	Signals     map[string]float64 `json:"signal_values"` // 계산된 시그널 값
}

// Fundamentals holds slow-moving company data used by fundamental gates
type Fundamentals struct {
	Ticker    string    `json:"ticker"`
	MarketCap float64   `json:"marketCap"`
	Beta      float64   `json:"beta"`
	Sector    string    `json:"sector"`
	Industry  string    `json:"industry"`
	FetchedAt time.Time `json:"fetched_at"`
	Known     bool      `json:"known"`
}

// UnknownFundamentals returns the degraded record used after a failed lookup
func UnknownFundamentals(ticker string) Fundamentals {
	return Fundamentals{Ticker: ticker, Known: false}
}
