package contracts

import (
	"sort"
	"time"
)

// PriceArchive is the immutable in-memory candle history of the universe
// ⭐ SSOT: S0 아카이브 구조 (한 번 로드 후 읽기 전용)
type PriceArchive struct {
	Series          map[string]*TickerSeries `json:"series"`
	Benchmark       string                   `json:"benchmark"`        // 기준 지수 (예: SPY)
	VolatilityIndex string                   `json:"volatility_index"` // 변동성 지수 (예: ^VIX)
}

// NewPriceArchive creates an empty archive
func NewPriceArchive(benchmark, volIndex string) *PriceArchive {
	return &PriceArchive{
		Series:          make(map[string]*TickerSeries),
		Benchmark:       benchmark,
		VolatilityIndex: volIndex,
	}
}

// Get returns a ticker's series, nil when absent
func (a *PriceArchive) Get(ticker string) *TickerSeries {
	if a == nil {
		return nil
	}
	return a.Series[ticker]
}

// Tickers returns all symbols sorted ascending
func (a *PriceArchive) Tickers() []string {
	tickers := make([]string, 0, len(a.Series))
	for t := range a.Series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// CandleCount returns the total number of candles
func (a *PriceArchive) CandleCount() int {
	total := 0
	for _, s := range a.Series {
		total += s.Len()
	}
	return total
}

// HasBenchmark reports whether the benchmark has data
func (a *PriceArchive) HasBenchmark() bool {
	return a.Get(a.Benchmark).Len() > 0
}

// Snapshot is an archive view truncated at Cutoff
// ⭐ SSOT: S0 → S1 시점 스냅샷 (아카이브에 다시 쓰지 않음)
type Snapshot struct {
	PriceArchive
	Cutoff      int64     `json:"cutoff"`
	SessionDate time.Time `json:"session_date"`
}

// Universe returns snapshot tickers excluding the benchmark and volatility index
func (s *Snapshot) Universe() []string {
	tickers := s.Tickers()
	out := tickers[:0]
	for _, t := range tickers {
		if t == s.Benchmark || t == s.VolatilityIndex {
			continue
		}
		out = append(out, t)
	}
	return out
}
