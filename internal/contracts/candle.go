package contracts

import (
	"fmt"
	"math"
	"time"
)

// Candle is one daily OHLCV bar
// ⭐ SSOT: 캔들 구조는 여기서만 정의
type Candle struct {
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"datetime"` // Unix epoch seconds, exchange-local end of day
}

// NewCandle builds a candle and validates its invariants
func NewCandle(open, high, low, close, volume float64, ts int64) (Candle, error) {
	c := Candle{
		Open:      open,
		Close:     close,
		High:      high,
		Low:       low,
		Volume:    volume,
		Timestamp: ts,
	}
	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// Validate checks price and volume sanity
func (c Candle) Validate() error {
	for name, v := range map[string]float64{"open": c.Open, "close": c.Close, "high": c.High, "low": c.Low, "volume": c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidCandle, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: negative %s %.4f", ErrInvalidCandle, name, v)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %.4f below low %.4f", ErrInvalidCandle, c.High, c.Low)
	}
	return nil
}

// Time returns the candle timestamp in the given location
func (c Candle) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(c.Timestamp, 0).In(loc)
}

// DayChange returns (close-open)/close in percent, 0 when close is 0
func (c Candle) DayChange() float64 {
	if c.Close == 0 {
		return 0
	}
	return (c.Close - c.Open) / c.Close * 100
}

// TickerSeries is the ordered candle history of one symbol
// 빈 시퀀스는 에러가 아니라 퇴화 케이스로 취급
type TickerSeries struct {
	Ticker  string   `json:"ticker"`
	Candles []Candle `json:"candles"`
}

// NewTickerSeries validates strictly increasing timestamps
func NewTickerSeries(ticker string, candles []Candle) (*TickerSeries, error) {
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp <= candles[i-1].Timestamp {
			return nil, fmt.Errorf("%w: %s candle %d at %d not after %d",
				ErrUnorderedSeries, ticker, i, candles[i].Timestamp, candles[i-1].Timestamp)
		}
	}
	return &TickerSeries{Ticker: ticker, Candles: candles}, nil
}

// Len returns the number of candles
func (s *TickerSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Closes returns close prices in chronological order
func (s *TickerSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Last returns the most recent candle
func (s *TickerSeries) Last() (Candle, bool) {
	if s.Len() == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}
