package s0_data

import (
	"github.com/wonny/aegis-rs/internal/contracts"
)

const day = int64(24 * 60 * 60)

// dailySeries builds n candles one day apart starting at start with close = base + i
func dailySeries(ticker string, start int64, n int, base float64) *contracts.TickerSeries {
	candles := make([]contracts.Candle, n)
	for i := 0; i < n; i++ {
		p := base + float64(i)
		candles[i] = contracts.Candle{
			Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000,
			Timestamp: start + int64(i)*day,
		}
	}
	return &contracts.TickerSeries{Ticker: ticker, Candles: candles}
}

func testArchive() *contracts.PriceArchive {
	a := contracts.NewPriceArchive("SPY", "^VIX")
	a.Series["SPY"] = dailySeries("SPY", 0, 30, 100)
	a.Series["AAA"] = dailySeries("AAA", 10*day, 15, 10)
	a.Series["^VIX"] = dailySeries("^VIX", 0, 30, 15)
	return a
}
