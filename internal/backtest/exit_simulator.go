package backtest

import (
	"sort"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/s0_data"
)

// exitState: awaitingEntry -> holding -> closed
type exitState int

const (
	awaitingEntry exitState = iota
	holding
	closed
)

// ExitSimulator implements S4: replays one position over the full candle history
// ⭐ SSOT: 청산 시뮬레이션은 여기서만
type ExitSimulator struct {
	rules contracts.ExitRulesConfig
	loc   *time.Location
}

// NewExitSimulator creates a simulator with the given exit rules
func NewExitSimulator(rules contracts.ExitRulesConfig, loc *time.Location) *ExitSimulator {
	if loc == nil {
		loc = time.UTC
	}
	return &ExitSimulator{rules: rules, loc: loc}
}

// Rules returns the exit rules in use
func (s *ExitSimulator) Rules() contracts.ExitRulesConfig {
	return s.rules
}

// Simulate enters at the close of the first candle at or after entry and walks forward
// Without a candle after the entry candle the NoTrade sentinel is returned.
func (s *ExitSimulator) Simulate(series *contracts.TickerSeries, entry int64) contracts.Trade {
	if series.Len() == 0 {
		return contracts.NoTrade("")
	}
	candles := series.Candles
	state := awaitingEntry

	// awaitingEntry: entry 이상 첫 캔들까지 건너뜀
	idx := sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp >= entry
	})
	if idx >= len(candles)-1 || candles[idx].Close <= 0 {
		return contracts.NoTrade(series.Ticker)
	}

	entryCandle := candles[idx]
	trade := contracts.Trade{
		Ticker:         series.Ticker,
		EntryDate:      s0_data.SessionDate(entryCandle.Timestamp, s.loc),
		EntryTimestamp: entryCandle.Timestamp,
		EntryPrice:     entryCandle.Close,
		MaxClose:       entryCandle.Close,
		MinClose:       entryCandle.Close,
	}
	state = holding

	price := entryCandle.Close
	for i := idx + 1; i < len(candles) && state == holding; i++ {
		c := candles[i].Close
		if c > trade.MaxClose {
			trade.MaxClose = c
		}
		if c < trade.MinClose {
			trade.MinClose = c
		}

		if reason, ok := s.check(candles, i, idx, price, trade.MaxClose); ok {
			s.settle(&trade, candles[i], i-idx, reason)
			state = closed
		}
	}

	if state == holding {
		last := len(candles) - 1
		s.settle(&trade, candles[last], last-idx, contracts.ExitEndOfData)
	}
	return trade
}

// check evaluates the exit rules on candle i, gain before loss
func (s *ExitSimulator) check(candles []contracts.Candle, i, entryIdx int, entryPrice, trailMax float64) (contracts.ExitReason, bool) {
	c := candles[i].Close
	r := s.rules

	if r.StopGain > 0 && (c-entryPrice)/entryPrice > r.StopGain {
		return contracts.ExitGain, true
	}
	if r.StopLoss > 0 && c < entryPrice*(1-r.StopLoss) {
		return contracts.ExitLoss, true
	}
	if r.TrailingStop > 0 && c < trailMax*(1-r.TrailingStop) {
		return contracts.ExitLoss, true
	}
	if r.MAExitPeriod > 0 && i+1 >= r.MAExitPeriod {
		sum := 0.0
		for _, k := range candles[i+1-r.MAExitPeriod : i+1] {
			sum += k.Close
		}
		if c < sum/float64(r.MAExitPeriod) {
			return contracts.ExitMABreak, true
		}
	}
	if r.MaxHoldingSessions > 0 && i-entryIdx >= r.MaxHoldingSessions {
		return contracts.ExitTime, true
	}
	return "", false
}

func (s *ExitSimulator) settle(t *contracts.Trade, c contracts.Candle, held int, reason contracts.ExitReason) {
	t.ExitTimestamp = c.Timestamp
	t.ExitDate = s0_data.SessionDate(c.Timestamp, s.loc)
	t.ExitPrice = c.Close
	t.ReturnPct = (c.Close/t.EntryPrice - 1) * 100
	t.HeldSessions = held
	t.ExitReason = reason
}
