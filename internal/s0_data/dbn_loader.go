package s0_data

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dbn "github.com/NimbleMarkets/dbn-go"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// DBN fixed-point price scale (1e-9 units)
const dbnPriceScale = 1_000_000_000.0

// DBNLoader loads per-ticker Databento OHLCV-1D files (<TICKER>.dbn or <TICKER>.dbn.zst)
type DBNLoader struct {
	opts   LoaderOptions
	logger *logger.Logger
}

// NewDBNLoader creates a DBN loader
func NewDBNLoader(opts LoaderOptions, log *logger.Logger) *DBNLoader {
	return &DBNLoader{
		opts:   opts,
		logger: log.WithField("module", "dbn_loader"),
	}
}

// Load decodes every DBN file in the directory with a bounded worker pool
func (l *DBNLoader) Load(ctx context.Context) (*contracts.PriceArchive, error) {
	var paths []string
	for _, pattern := range []string{"*.dbn", "*.dbn.zst"} {
		m, err := filepath.Glob(filepath.Join(l.opts.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob dbn files: %w", err)
		}
		paths = append(paths, m...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no dbn files in %s: %w", l.opts.Dir, contracts.ErrEmptyArchive)
	}
	sort.Strings(paths)

	results := make([]shardResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.workers())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ticker := TickerFromDBNPath(path)
			series, err := l.readFile(path, ticker)
			results[i] = shardResult{
				path:   path,
				series: map[string]*contracts.TickerSeries{ticker: series},
				err:    err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	archive := contracts.NewPriceArchive(NormalizeTicker(l.opts.Benchmark), NormalizeTicker(l.opts.VolatilityIndex))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			l.logger.WithError(r.err).WithField("file", filepath.Base(r.path)).Warn("DBN file failed to load, excluded")
			continue
		}
		mergeInto(archive, r.series)
	}
	if failed == len(results) {
		return nil, fmt.Errorf("all %d dbn files failed to load: %w", failed, results[0].err)
	}

	return finish(ctx, archive, l.logger)
}

// TickerFromDBNPath derives the ticker from a file name
func TickerFromDBNPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".zst")
	base = strings.TrimSuffix(base, ".dbn")
	return NormalizeTicker(base)
}

func (l *DBNLoader) readFile(path, ticker string) (*contracts.TickerSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", filepath.Base(path), err)
		}
		defer zr.Close()
		r = zr
	}

	return decodeDBN(r, ticker)
}

// decodeDBN collects OHLCV records from a DBN stream
func decodeDBN(r io.Reader, ticker string) (*contracts.TickerSeries, error) {
	visitor := &ohlcvVisitor{}
	scanner := dbn.NewDbnScanner(r)
	for scanner.Next() {
		if err := scanner.Visit(visitor); err != nil {
			return nil, fmt.Errorf("visit %s: %w", ticker, err)
		}
	}
	if err := scanner.Error(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("scan %s: %w", ticker, err)
	}
	return buildSeries(ticker, visitor.candles)
}

// ohlcvVisitor converts OHLCV messages into candles and ignores everything else
type ohlcvVisitor struct {
	candles []contracts.Candle
}

func (v *ohlcvVisitor) OnOhlcv(r *dbn.OhlcvMsg) error {
	v.candles = append(v.candles, contracts.Candle{
		Open:      float64(r.Open) / dbnPriceScale,
		High:      float64(r.High) / dbnPriceScale,
		Low:       float64(r.Low) / dbnPriceScale,
		Close:     float64(r.Close) / dbnPriceScale,
		Volume:    float64(r.Volume),
		Timestamp: int64(r.Header.TsEvent / 1_000_000_000),
	})
	return nil
}

func (v *ohlcvVisitor) OnSymbolMappingMsg(*dbn.SymbolMappingMsg) error { return nil }
func (v *ohlcvVisitor) OnMbp1(*dbn.Mbp1Msg) error                      { return nil }
func (v *ohlcvVisitor) OnMbp0(*dbn.Mbp0Msg) error                      { return nil }
func (v *ohlcvVisitor) OnMbp10(*dbn.Mbp10Msg) error                    { return nil }
func (v *ohlcvVisitor) OnMbo(*dbn.MboMsg) error                        { return nil }
func (v *ohlcvVisitor) OnCmbp1(*dbn.Cmbp1Msg) error                    { return nil }
func (v *ohlcvVisitor) OnBbo(*dbn.BboMsg) error                        { return nil }
func (v *ohlcvVisitor) OnImbalance(*dbn.ImbalanceMsg) error            { return nil }
func (v *ohlcvVisitor) OnStatMsg(*dbn.StatMsg) error                   { return nil }
func (v *ohlcvVisitor) OnStatusMsg(*dbn.StatusMsg) error               { return nil }
func (v *ohlcvVisitor) OnInstrumentDefMsg(*dbn.InstrumentDefMsg) error { return nil }
func (v *ohlcvVisitor) OnErrorMsg(*dbn.ErrorMsg) error                 { return nil }
func (v *ohlcvVisitor) OnSystemMsg(*dbn.SystemMsg) error               { return nil }
func (v *ohlcvVisitor) OnStreamEnd() error                             { return nil }
