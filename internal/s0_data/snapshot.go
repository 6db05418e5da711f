package s0_data

import (
	"sort"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// TakeSnapshot returns a point-in-time view with every series truncated at cutoff
// ⭐ SSOT: 시점 스냅샷은 여기서만 생성 (아카이브 변경 금지)
//
// Candle slices are re-sliced with clipped capacity so the view shares
// candle storage with the archive but can never append into it.
func TakeSnapshot(archive *contracts.PriceArchive, cutoff int64, loc *time.Location) *contracts.Snapshot {
	snap := &contracts.Snapshot{
		PriceArchive: contracts.PriceArchive{
			Series:          make(map[string]*contracts.TickerSeries, len(archive.Series)),
			Benchmark:       archive.Benchmark,
			VolatilityIndex: archive.VolatilityIndex,
		},
		Cutoff:      cutoff,
		SessionDate: SessionDate(cutoff, loc),
	}

	for ticker, series := range archive.Series {
		n := truncateIndex(series.Candles, cutoff)
		if n == 0 {
			continue
		}
		snap.Series[ticker] = &contracts.TickerSeries{
			Ticker:  ticker,
			Candles: series.Candles[:n:n],
		}
	}

	return snap
}

// truncateIndex returns the count of candles with timestamp <= cutoff
func truncateIndex(candles []contracts.Candle, cutoff int64) int {
	return sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp > cutoff
	})
}

// SessionDate converts a session timestamp to its calendar date at midnight in loc
func SessionDate(ts int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(ts, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Midnight returns the start of the calendar day of t in loc
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	// 날짜 구성요소만 사용 (입력 시간대와 무관하게 같은 달력 날짜)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Calendar resolves calendar dates to trading sessions
// 캔들 이력이 가장 긴 종목을 거래 달력으로 사용
type Calendar struct {
	ticker   string
	sessions []int64
	loc      *time.Location
}

// NewCalendar picks the longest history (ties: smallest ticker) as the trading calendar
func NewCalendar(archive *contracts.PriceArchive, loc *time.Location) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}

	best := ""
	bestLen := 0
	for ticker, series := range archive.Series {
		n := series.Len()
		if n > bestLen || (n == bestLen && n > 0 && ticker < best) {
			best, bestLen = ticker, n
		}
	}
	if bestLen == 0 {
		return nil, contracts.ErrEmptyArchive
	}

	candles := archive.Series[best].Candles
	sessions := make([]int64, len(candles))
	for i, c := range candles {
		sessions[i] = c.Timestamp
	}

	return &Calendar{ticker: best, sessions: sessions, loc: loc}, nil
}

// Ticker returns the symbol used as the calendar
func (c *Calendar) Ticker() string {
	return c.ticker
}

// Len returns the number of sessions
func (c *Calendar) Len() int {
	return len(c.sessions)
}

// First returns the earliest session timestamp
func (c *Calendar) First() int64 {
	return c.sessions[0]
}

// Last returns the latest session timestamp
func (c *Calendar) Last() int64 {
	return c.sessions[len(c.sessions)-1]
}

// Nearest returns the session minimising |ts - midnight(target)|, earlier session on ties
func (c *Calendar) Nearest(target time.Time) int64 {
	goal := Midnight(target, c.loc).Unix()
	return c.NearestTimestamp(goal)
}

// NearestTimestamp is Nearest for a raw epoch second
func (c *Calendar) NearestTimestamp(goal int64) int64 {
	i := sort.Search(len(c.sessions), func(i int) bool {
		return c.sessions[i] >= goal
	})
	switch {
	case i == 0:
		return c.sessions[0]
	case i == len(c.sessions):
		return c.sessions[len(c.sessions)-1]
	}
	before, after := c.sessions[i-1], c.sessions[i]
	if after-goal < goal-before {
		return after
	}
	return before
}

// ResolveDate returns the calendar date of the session nearest to target
func (c *Calendar) ResolveDate(target time.Time) time.Time {
	return SessionDate(c.Nearest(target), c.loc)
}

// Location returns the market location of the calendar
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// FindNearestTradingDate resolves target to the nearest session of the calendar ticker
func FindNearestTradingDate(archive *contracts.PriceArchive, target time.Time, loc *time.Location) (int64, error) {
	cal, err := NewCalendar(archive, loc)
	if err != nil {
		return 0, err
	}
	return cal.Nearest(target), nil
}
