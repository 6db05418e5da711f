package s0_data

import (
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
)

// QualityReport summarises archive coverage before a run
type QualityReport struct {
	Tickers        int       `json:"tickers"`
	Candles        int       `json:"candles"`
	RankableCount  int       `json:"rankable_count"` // MinHistory 이상
	StaleCount     int       `json:"stale_count"`    // 달력 마지막 세션에 캔들 없음
	Coverage       float64   `json:"coverage"`       // 마지막 세션 캔들 보유 비율
	CalendarTicker string    `json:"calendar_ticker"`
	FirstSession   time.Time `json:"first_session"`
	LastSession    time.Time `json:"last_session"`
	HasBenchmark   bool      `json:"has_benchmark"`
	HasVolIndex    bool      `json:"has_volatility_index"`
	Passed         bool      `json:"passed"`
}

// CheckQuality inspects the archive, minCoverage of 0.9 means 90% of tickers are current
func CheckQuality(archive *contracts.PriceArchive, minHistory int, minCoverage float64, loc *time.Location) (*QualityReport, error) {
	cal, err := NewCalendar(archive, loc)
	if err != nil {
		return nil, err
	}

	report := &QualityReport{
		Tickers:        len(archive.Series),
		Candles:        archive.CandleCount(),
		CalendarTicker: cal.Ticker(),
		FirstSession:   SessionDate(cal.First(), loc),
		LastSession:    SessionDate(cal.Last(), loc),
		HasBenchmark:   archive.HasBenchmark(),
		HasVolIndex:    archive.Get(archive.VolatilityIndex).Len() > 0,
	}

	last := cal.Last()
	for _, s := range archive.Series {
		if s.Len() >= minHistory {
			report.RankableCount++
		}
		if c, ok := s.Last(); !ok || c.Timestamp < last {
			report.StaleCount++
		}
	}

	if report.Tickers > 0 {
		report.Coverage = float64(report.Tickers-report.StaleCount) / float64(report.Tickers)
	}
	report.Passed = report.HasBenchmark && report.Coverage >= minCoverage

	return report, nil
}
