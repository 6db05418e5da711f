package s2_signals

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// HighVolume is the heaviest-volume session of a trailing window
type HighVolume struct {
	Volume    float64 `json:"volume"`
	Index     int     `json:"index"`
	Timestamp int64   `json:"timestamp"`
	ChangePct float64 `json:"change_pct"` // 당일 (close-open)/close * 100
}

// SignalSet computes derived screening signals of one ticker snapshot
// ⭐ SSOT: 스크리닝 시그널 계산은 여기서만
// Every accessor returns ok=false when the series is too short.
// Computed values are memoised by name and exposed through Values.
type SignalSet struct {
	ticker  string
	candles []contracts.Candle
	closes  []float64
	memo    map[string]float64
}

// NewSignalSet creates a signal set over a point-in-time series
func NewSignalSet(series *contracts.TickerSeries) *SignalSet {
	s := &SignalSet{memo: make(map[string]float64)}
	if series != nil {
		s.ticker = series.Ticker
		s.candles = series.Candles
		s.closes = series.Closes()
	}
	return s
}

// Ticker returns the ticker symbol
func (s *SignalSet) Ticker() string {
	return s.ticker
}

// Len returns the number of sessions
func (s *SignalSet) Len() int {
	return len(s.candles)
}

// Values returns a copy of every signal computed so far
func (s *SignalSet) Values() map[string]float64 {
	out := make(map[string]float64, len(s.memo))
	for k, v := range s.memo {
		out[k] = v
	}
	return out
}

// memoise runs fn once per name, failures are not cached
func (s *SignalSet) memoise(name string, fn func() (float64, bool)) (float64, bool) {
	if v, ok := s.memo[name]; ok {
		return v, true
	}
	v, ok := fn()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	s.memo[name] = v
	return v, true
}

// LastClose returns the most recent close
func (s *SignalSet) LastClose() (float64, bool) {
	return s.memoise("close", func() (float64, bool) {
		if len(s.closes) == 0 {
			return 0, false
		}
		return s.closes[len(s.closes)-1], true
	})
}

// SMA returns the simple moving average of closes, shifted back shift sessions
func (s *SignalSet) SMA(window, shift int) (float64, bool) {
	name := fmt.Sprintf("sma_%d", window)
	if shift > 0 {
		name = fmt.Sprintf("sma_%d_shift_%d", window, shift)
	}
	return s.memoise(name, func() (float64, bool) {
		return mean(s.closes, window, shift)
	})
}

// CloseToSMA returns how far the last close sits above SMA(window) in percent
func (s *SignalSet) CloseToSMA(window int) (float64, bool) {
	return s.memoise(fmt.Sprintf("close_to_sma_%d", window), func() (float64, bool) {
		sma, ok := s.SMA(window, 0)
		if !ok || sma == 0 {
			return 0, false
		}
		last, _ := s.LastClose()
		return (last - sma) * 100 / sma, true
	})
}

// SMAToSMA returns SMA(a) / SMA(b)
func (s *SignalSet) SMAToSMA(a, b int) (float64, bool) {
	return s.memoise(fmt.Sprintf("sma_%d_to_sma_%d", a, b), func() (float64, bool) {
		fast, ok := s.SMA(a, 0)
		if !ok {
			return 0, false
		}
		slow, ok := s.SMA(b, 0)
		if !ok || slow == 0 {
			return 0, false
		}
		return fast / slow, true
	})
}

// SessionsSinceCloseAtOrAbove counts sessions back to the last close at or above today's
// The whole history counts when today's close is a new high.
func (s *SignalSet) SessionsSinceCloseAtOrAbove() (float64, bool) {
	return s.memoise("close_recency", func() (float64, bool) {
		return recency(s.closes)
	})
}

// SessionsSinceVolumeAtOrAbove counts sessions back to the last volume at or above today's
func (s *SignalSet) SessionsSinceVolumeAtOrAbove() (float64, bool) {
	return s.memoise("volume_recency", func() (float64, bool) {
		volumes := make([]float64, len(s.candles))
		for i, c := range s.candles {
			volumes[i] = c.Volume
		}
		return recency(volumes)
	})
}

// AvgVolume returns the average volume of window sessions, shifted back shift sessions
func (s *SignalSet) AvgVolume(window, shift int) (float64, bool) {
	name := fmt.Sprintf("avg_volume_%d", window)
	if shift > 0 {
		name = fmt.Sprintf("avg_volume_%d_shift_%d", window, shift)
	}
	return s.memoise(name, func() (float64, bool) {
		volumes := make([]float64, len(s.candles))
		for i, c := range s.candles {
			volumes[i] = c.Volume
		}
		return mean(volumes, window, shift)
	})
}

// MaxAbsDailyMove returns the largest absolute close-to-close move of the last window sessions in percent
func (s *SignalSet) MaxAbsDailyMove(window int) (float64, bool) {
	return s.memoise(fmt.Sprintf("max_daily_move_%d", window), func() (float64, bool) {
		n := len(s.closes)
		if window < 1 || n < window+1 {
			return 0, false
		}
		worst := 0.0
		for i := n - window; i < n; i++ {
			prev := s.closes[i-1]
			if prev == 0 {
				return 0, false
			}
			move := math.Abs(s.closes[i]/prev-1) * 100
			if move > worst {
				worst = move
			}
		}
		return worst, true
	})
}

// RecentHighVolume finds the heaviest session of the last window, the earliest wins ties
func (s *SignalSet) RecentHighVolume(window int) (HighVolume, bool) {
	n := len(s.candles)
	if window < 1 || n < window {
		return HighVolume{}, false
	}

	best := n - window
	for i := n - window + 1; i < n; i++ {
		if s.candles[i].Volume > s.candles[best].Volume {
			best = i
		}
	}

	change, ok := s.DayChange(best)
	if !ok {
		return HighVolume{}, false
	}
	hv := HighVolume{
		Volume:    s.candles[best].Volume,
		Index:     best,
		Timestamp: s.candles[best].Timestamp,
		ChangePct: change,
	}
	s.memo[fmt.Sprintf("high_volume_%d", window)] = hv.Volume
	s.memo[fmt.Sprintf("high_volume_%d_change", window)] = hv.ChangePct
	s.memo[fmt.Sprintf("high_volume_%d_timestamp", window)] = float64(hv.Timestamp)
	return hv, true
}

// DayChange returns (close-open)/close of the session at index in percent
func (s *SignalSet) DayChange(index int) (float64, bool) {
	if index < 0 || index >= len(s.candles) {
		return 0, false
	}
	c := s.candles[index]
	if c.Close == 0 {
		return 0, false
	}
	return (c.Close - c.Open) / c.Close * 100, true
}

// RelativeVolume returns today's volume over the average of the previous window sessions
func (s *SignalSet) RelativeVolume(window int) (float64, bool) {
	return s.memoise(fmt.Sprintf("relative_volume_%d", window), func() (float64, bool) {
		avg, ok := s.AvgVolume(window, 1)
		if !ok || avg == 0 {
			return 0, false
		}
		return s.candles[len(s.candles)-1].Volume / avg, true
	})
}

// mean averages the window values ending shift sessions before the last
func mean(values []float64, window, shift int) (float64, bool) {
	if window < 1 || shift < 0 {
		return 0, false
	}
	end := len(values) - shift
	if end < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[end-window : end] {
		sum += v
	}
	return sum / float64(window), true
}

// recency counts sessions between the last value and the most recent earlier value at or above it
func recency(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	current := values[n-1]
	for i := n - 2; i >= 0; i-- {
		if values[i] >= current {
			return float64(n - 1 - i), true
		}
	}
	return float64(n - 1), true
}
