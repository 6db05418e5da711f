package s0_data

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/database"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// NewLoader builds the archive loader selected by ARCHIVE_FORMAT
func NewLoader(cfg *config.Config, db *database.DB, log *logger.Logger) (contracts.ArchiveLoader, error) {
	opts := LoaderOptions{
		Dir:             cfg.Archive.Dir,
		Benchmark:       cfg.Archive.Benchmark,
		VolatilityIndex: cfg.Archive.VolatilityIndex,
		Workers:         cfg.Archive.Workers,
	}

	switch cfg.Archive.Format {
	case "shards":
		return NewShardLoader(opts, log), nil
	case "dbn":
		return NewDBNLoader(opts, log), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres archive requires a database connection")
		}
		return NewPriceRepository(db.Pool, opts, log), nil
	default:
		return nil, fmt.Errorf("unknown archive format %q", cfg.Archive.Format)
	}
}

// LoaderOptions is shared by every archive loader
type LoaderOptions struct {
	Dir             string
	Benchmark       string
	VolatilityIndex string
	Workers         int
}

func (o LoaderOptions) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// NormalizeTicker uppercases and trims a symbol
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// buildSeries sorts candles, drops duplicate timestamps (last wins) and validates
func buildSeries(ticker string, candles []contracts.Candle) (*contracts.TickerSeries, error) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	out := candles[:0]
	for _, c := range candles {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s at %d: %w", ticker, c.Timestamp, err)
		}
		if n := len(out); n > 0 && out[n-1].Timestamp == c.Timestamp {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}

	return contracts.NewTickerSeries(ticker, out)
}

// mergeInto adds non-empty series into the archive
func mergeInto(archive *contracts.PriceArchive, part map[string]*contracts.TickerSeries) {
	for ticker, s := range part {
		if s.Len() == 0 {
			continue
		}
		archive.Series[ticker] = s
	}
}

// finish validates the merged archive
func finish(ctx context.Context, archive *contracts.PriceArchive, log *logger.Logger) (*contracts.PriceArchive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(archive.Series) == 0 {
		return nil, contracts.ErrEmptyArchive
	}
	if !archive.HasBenchmark() {
		log.WithField("benchmark", archive.Benchmark).Warn("Benchmark missing from archive, ranking will fail")
	}

	log.WithFields(map[string]interface{}{
		"tickers": len(archive.Series),
		"candles": archive.CandleCount(),
	}).Info("Price archive loaded")

	return archive, nil
}
