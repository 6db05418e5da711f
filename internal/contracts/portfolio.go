package contracts

import "time"

// LedgerAction is the kind of a ledger event
type LedgerAction string

const (
	ActionBuy    LedgerAction = "Buy"
	ActionSell   LedgerAction = "Sell"
	ActionNoCash LedgerAction = "No cash"
)

// Position is one open allocation carried at cost until release
type Position struct {
	Ticker    string    `json:"ticker"`
	EntryDate time.Time `json:"entry_date"`
	ExitDate  time.Time `json:"exit_date"`
	Cost      float64   `json:"cost"`       // 투입 금액
	Proceeds  float64   `json:"proceeds"`   // 청산 시 회수 금액 = Cost * (1 + ReturnPct/100)
	ReturnPct float64   `json:"return_pct"` // 퍼센트
}

// RealizedPnL returns proceeds minus cost
func (p Position) RealizedPnL() float64 {
	return p.Proceeds - p.Cost
}

// LedgerEvent is one row of the portfolio timeline
// ⭐ SSOT: S5 타임라인 이벤트 (내보내기 컬럼과 1:1)
type LedgerEvent struct {
	Date            time.Time    `json:"date"`
	Action          LedgerAction `json:"action"`
	Ticker          string       `json:"ticker"`
	ProfitPct       float64      `json:"profit"`
	Cash            float64      `json:"cash"`
	CashChange      float64      `json:"cash_change"`
	Holding         float64      `json:"holding"`
	HoldingCount    int          `json:"holding_count"`
	HoldingChange   float64      `json:"holding_change"`
	Total           float64      `json:"total"`
	RealizedPnL     float64      `json:"realized_pnl"` // 누적 실현 손익
	EndOfSimulation bool         `json:"end_of_simulation,omitempty"`
}

// LedgerSummary is the result of a timeline simulation
type LedgerSummary struct {
	InitialCash    float64       `json:"initial_cash"`
	FinalCash      float64       `json:"final_cash"`
	Performance    float64       `json:"performance"` // (final - initial) / initial
	Events         []LedgerEvent `json:"events"`
	TradesTaken    int           `json:"trades_taken"`
	TradesSkipped  int           `json:"trades_skipped"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	CAGR           float64       `json:"cagr"`
	WinRate        float64       `json:"win_rate"`
	AvgWinPct      float64       `json:"avg_win_pct"`
	AvgLossPct     float64       `json:"avg_loss_pct"`
	ReturnStdDev   float64       `json:"return_std_dev"` // 거래 수익률 표준편차 (퍼센트)
	FirstEntryDate time.Time     `json:"first_entry_date"`
	LastExitDate   time.Time     `json:"last_exit_date"`
}
