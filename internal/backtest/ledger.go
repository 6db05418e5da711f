package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// DefaultInitialCash matches the timeline's starting balance of 100
const DefaultInitialCash = 100.0

// dayKeyLayout groups entries by calendar date
const dayKeyLayout = "2006-01-02"

// invariantTolerance absorbs float accumulation over long timelines
const invariantTolerance = 1e-6

// LedgerConfig holds the portfolio allocation settings
type LedgerConfig struct {
	InitialCash float64 `yaml:"initial_cash" json:"initial_cash"`
	MinPosition float64 `yaml:"min_position" json:"min_position"` // 이 금액 이하 배분은 "No cash"
}

// DefaultLedgerConfig returns the default ledger settings
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{InitialCash: DefaultInitialCash}
}

// Ledger implements S5: equal-weight allocation with positions carried at cost
// ⭐ SSOT: 현금/보유 보존 규칙은 여기서만
type Ledger struct {
	config   LedgerConfig
	logger   *logger.Logger
	cash     float64
	holding  float64
	realized float64
	open     []contracts.Position
	closed   []contracts.Position
	events   []contracts.LedgerEvent
	skipped  int
	first    time.Time
	last     time.Time
}

// NewLedger creates an empty ledger funded with InitialCash
func NewLedger(config LedgerConfig, log *logger.Logger) *Ledger {
	if config.InitialCash <= 0 {
		config.InitialCash = DefaultInitialCash
	}
	return &Ledger{
		config: config,
		logger: log.WithStage(contracts.StageLedger.String()),
		cash:   config.InitialCash,
	}
}

// Run replays the trades grouped by entry date and closes the book
func (l *Ledger) Run(trades []contracts.Trade) (*contracts.LedgerSummary, error) {
	// 달력 날짜로 묶음 (time.Time 키는 *Location 포인터까지 비교)
	byDay := make(map[string][]contracts.Trade)
	stamps := make(map[string]time.Time)
	for _, t := range trades {
		if t.IsNoTrade() {
			continue
		}
		key := t.EntryDate.Format(dayKeyLayout)
		if _, ok := stamps[key]; !ok {
			stamps[key] = t.EntryDate
		}
		byDay[key] = append(byDay[key], t)
	}

	days := make([]string, 0, len(byDay))
	for k := range byDay {
		days = append(days, k)
	}
	sort.Strings(days)

	for _, k := range days {
		if err := l.ProcessDate(stamps[k], byDay[k]); err != nil {
			return nil, err
		}
	}
	return l.Finish()
}

// ProcessDate releases matured positions then allocates cash across the date's trades
func (l *Ledger) ProcessDate(date time.Time, trades []contracts.Trade) error {
	if err := l.release(func(p contracts.Position) bool { return !p.ExitDate.After(date) }, false); err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	rows := make([]contracts.Trade, len(trades))
	copy(rows, trades)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })

	// 날짜당 한 번만 계산
	cashPer := l.cash / float64(len(rows))

	for _, t := range rows {
		if cashPer <= l.config.MinPosition || l.cash-cashPer < -invariantTolerance {
			l.skipped++
			l.record(contracts.LedgerEvent{
				Date:   date,
				Action: contracts.ActionNoCash,
				Ticker: t.Ticker,
			})
			continue
		}

		pos := contracts.Position{
			Ticker:    t.Ticker,
			EntryDate: date,
			ExitDate:  t.ExitDate,
			Cost:      cashPer,
			Proceeds:  cashPer * (1 + t.ReturnPct/100),
			ReturnPct: t.ReturnPct,
		}
		l.cash -= cashPer
		l.holding += cashPer
		l.open = append(l.open, pos)

		if l.first.IsZero() || date.Before(l.first) {
			l.first = date
		}

		l.record(contracts.LedgerEvent{
			Date:          date,
			Action:        contracts.ActionBuy,
			Ticker:        t.Ticker,
			CashChange:    -cashPer,
			HoldingChange: cashPer,
		})
		if err := l.CheckInvariant(); err != nil {
			return err
		}
	}
	return nil
}

// Finish force-releases every open position and returns the summary
func (l *Ledger) Finish() (*contracts.LedgerSummary, error) {
	if err := l.release(func(contracts.Position) bool { return true }, true); err != nil {
		return nil, err
	}

	summary := &contracts.LedgerSummary{
		InitialCash:    l.config.InitialCash,
		FinalCash:      l.cash,
		Events:         l.events,
		TradesTaken:    len(l.closed),
		TradesSkipped:  l.skipped,
		FirstEntryDate: l.first,
		LastExitDate:   l.last,
	}
	calculateMetrics(summary, l.closed)

	l.logger.WithFields(map[string]interface{}{
		"trades_taken":   summary.TradesTaken,
		"trades_skipped": summary.TradesSkipped,
		"final_cash":     fmt.Sprintf("%.2f", summary.FinalCash),
		"performance":    fmt.Sprintf("%.2f%%", summary.Performance*100),
		"max_drawdown":   fmt.Sprintf("%.2f%%", summary.MaxDrawdown*100),
	}).Info("Ledger completed")

	return summary, nil
}

// CheckInvariant verifies cash + holding = initial + realized and non-negative balances
func (l *Ledger) CheckInvariant() error {
	expected := l.config.InitialCash + l.realized
	if diff := math.Abs(l.cash + l.holding - expected); diff > invariantTolerance*math.Max(1, expected) {
		return fmt.Errorf("ledger invariant violated: cash %.6f + holding %.6f != %.6f", l.cash, l.holding, expected)
	}
	if l.cash < -invariantTolerance || l.holding < -invariantTolerance {
		return fmt.Errorf("ledger invariant violated: negative balance cash %.6f holding %.6f", l.cash, l.holding)
	}
	return nil
}

// Cash returns the uninvested balance
func (l *Ledger) Cash() float64 { return l.cash }

// Holding returns open positions at cost
func (l *Ledger) Holding() float64 { return l.holding }

// Open returns the number of open positions
func (l *Ledger) Open() int { return len(l.open) }

// release closes every open position matching due, in exit date then ticker order
func (l *Ledger) release(due func(contracts.Position) bool, end bool) error {
	var matured, remaining []contracts.Position
	for _, p := range l.open {
		if due(p) {
			matured = append(matured, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	if len(matured) == 0 {
		return nil
	}
	sort.SliceStable(matured, func(i, j int) bool {
		if !matured[i].ExitDate.Equal(matured[j].ExitDate) {
			return matured[i].ExitDate.Before(matured[j].ExitDate)
		}
		return matured[i].Ticker < matured[j].Ticker
	})
	l.open = remaining

	for _, p := range matured {
		l.cash += p.Proceeds
		l.holding -= p.Cost
		if len(l.open) == 0 && math.Abs(l.holding) < invariantTolerance {
			l.holding = 0
		}
		l.realized += p.RealizedPnL()
		l.closed = append(l.closed, p)
		if p.ExitDate.After(l.last) {
			l.last = p.ExitDate
		}

		l.record(contracts.LedgerEvent{
			Date:            p.ExitDate,
			Action:          contracts.ActionSell,
			Ticker:          p.Ticker,
			ProfitPct:       p.ReturnPct,
			CashChange:      p.Proceeds,
			HoldingChange:   -p.Cost,
			EndOfSimulation: end,
		})
		if err := l.CheckInvariant(); err != nil {
			return err
		}
	}
	return nil
}

// record stamps balances onto the event and appends it
func (l *Ledger) record(ev contracts.LedgerEvent) {
	ev.Cash = l.cash
	ev.Holding = l.holding
	ev.HoldingCount = len(l.open)
	ev.Total = l.cash + l.holding
	ev.RealizedPnL = l.realized
	l.events = append(l.events, ev)
}
