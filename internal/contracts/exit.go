package contracts

import "time"

// =============================================================================
// Exit Rules Configuration
// ⭐ SSOT: 청산규칙 설정은 여기서만
// =============================================================================

// ExitReason is the terminal reason of a simulated trade
type ExitReason string

const (
	ExitGain      ExitReason = "Gain"
	ExitLoss      ExitReason = "Loss"
	ExitEndOfData ExitReason = "End of data"
	ExitMABreak   ExitReason = "MA Break"
	ExitTime      ExitReason = "Time"
	ExitNoTrade   ExitReason = "No trade"
)

// NoTradeTimestamp marks a trade that never opened
const NoTradeTimestamp int64 = -1

// ExitRulesConfig 청산 규칙 설정 (비율은 0.10 = 10%)
type ExitRulesConfig struct {
	StopGain           float64 `json:"stop_gain" yaml:"stop_gain"`                       // 익절 (0.20 = +20%)
	StopLoss           float64 `json:"stop_loss" yaml:"stop_loss"`                       // 손절 (0.08 = -8%)
	TrailingStop       float64 `json:"trailing_stop" yaml:"trailing_stop"`               // 고점 대비 하락폭, 0이면 비활성
	MAExitPeriod       int     `json:"ma_exit_period" yaml:"ma_exit_period"`             // 종가 < MA(N) 청산, 0이면 비활성
	MaxHoldingSessions int     `json:"max_holding_sessions" yaml:"max_holding_sessions"` // 타임 스탑, 0이면 비활성
}

// DefaultExitRulesConfig 기본 청산 규칙 설정 반환
func DefaultExitRulesConfig() *ExitRulesConfig {
	return &ExitRulesConfig{
		StopGain:           0.20,
		StopLoss:           0.08,
		TrailingStop:       0,
		MAExitPeriod:       0,
		MaxHoldingSessions: 0,
	}
}

// Trade is the closed outcome of one (ticker, entry date) simulation
// ⭐ SSOT: S4 → S5 거래 결과 전달
type Trade struct {
	Ticker         string     `json:"ticker"`
	SessionDate    time.Time  `json:"session_date"` // 스크린이 통과된 세션
	EntryDate      time.Time  `json:"entry_date"`
	EntryTimestamp int64      `json:"entry_timestamp"`
	EntryPrice     float64    `json:"entry_price"`
	ExitDate       time.Time  `json:"exit_date"`
	ExitTimestamp  int64      `json:"exit_timestamp"`
	ExitPrice      float64    `json:"exit_price"`
	ReturnPct      float64    `json:"return_pct"` // 퍼센트 (12.5 = +12.5%)
	HeldSessions   int        `json:"held_sessions"`
	MaxClose       float64    `json:"max_close"` // 보유 중 최고 종가
	MinClose       float64    `json:"min_close"` // 보유 중 최저 종가
	ExitReason     ExitReason `json:"exit_reason"`
}

// NoTrade returns the sentinel result for a ticker without usable candles
func NoTrade(ticker string) Trade {
	return Trade{
		Ticker:         ticker,
		EntryTimestamp: NoTradeTimestamp,
		ExitTimestamp:  NoTradeTimestamp,
		ExitReason:     ExitNoTrade,
	}
}

// IsNoTrade reports whether the trade is the sentinel
func (t Trade) IsNoTrade() bool {
	return t.EntryTimestamp == NoTradeTimestamp
}

// IsWin reports a positive realized return
func (t Trade) IsWin() bool {
	return t.ReturnPct > 0
}
