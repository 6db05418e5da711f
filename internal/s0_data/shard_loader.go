package s0_data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// ShardSuffix names a gzip JSON price shard ({key}_price_history.json.gz)
const ShardSuffix = "_price_history.json.gz"

// shardRecord is the on-disk value of one ticker inside a shard
type shardRecord struct {
	Candles []contracts.Candle `json:"candles"`
}

// ShardLoader loads gzip JSON shards keyed by ticker initial
// ⭐ SSOT: 샤드 병렬 로드 (유일하게 허용된 병렬 구간)
type ShardLoader struct {
	opts   LoaderOptions
	logger *logger.Logger
}

// NewShardLoader creates a shard loader
func NewShardLoader(opts LoaderOptions, log *logger.Logger) *ShardLoader {
	return &ShardLoader{
		opts:   opts,
		logger: log.WithField("module", "shard_loader"),
	}
}

// shardResult holds one shard's output, each worker owns exactly one slot
type shardResult struct {
	path   string
	series map[string]*contracts.TickerSeries
	err    error
}

// Load reads every shard in the directory with a bounded worker pool
func (l *ShardLoader) Load(ctx context.Context) (*contracts.PriceArchive, error) {
	paths, err := filepath.Glob(filepath.Join(l.opts.Dir, "*"+ShardSuffix))
	if err != nil {
		return nil, fmt.Errorf("glob shards: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no shards in %s: %w", l.opts.Dir, contracts.ErrEmptyArchive)
	}
	sort.Strings(paths)

	l.logger.WithFields(map[string]interface{}{
		"dir":     l.opts.Dir,
		"shards":  len(paths),
		"workers": l.opts.workers(),
	}).Info("Loading price shards")

	results := make([]shardResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.workers())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series, err := l.readShard(path)
			results[i] = shardResult{path: path, series: series, err: err}
			// 샤드 실패는 하위 호환 degrade: 해당 샤드만 제외
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
			l.logger.WithError(r.err).WithField("shard", filepath.Base(r.path)).Warn("Shard failed to load, excluded")
			continue
		}
		mergeInto(archive, r.series)
	}
	if failed == len(results) {
		return nil, fmt.Errorf("all %d shards failed to load: %w", failed, results[0].err)
	}

	return finish(ctx, archive, l.logger)
}

// readShard decodes one shard; tickers with corrupt candles are skipped
func (l *ShardLoader) readShard(path string) (map[string]*contracts.TickerSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	raw := make(map[string]shardRecord)
	if err := json.NewDecoder(zr).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	out := make(map[string]*contracts.TickerSeries, len(raw))
	for ticker, rec := range raw {
		ticker = NormalizeTicker(ticker)
		s, err := buildSeries(ticker, rec.Candles)
		if err != nil {
			l.logger.WithError(err).WithField("ticker", ticker).Warn("Corrupt series skipped")
			continue
		}
		out[ticker] = s
	}
	return out, nil
}

// ShardKey returns the shard a ticker belongs to
func ShardKey(ticker string) string {
	if ticker == "" {
		return "misc"
	}
	c := strings.ToLower(ticker[:1])
	if c >= "a" && c <= "z" {
		return c
	}
	return "misc"
}

// WriteShards writes the archive as gzip JSON shards keyed by ticker initial
func WriteShards(dir string, archive *contracts.PriceArchive) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	shards := make(map[string]map[string]shardRecord)
	for ticker, s := range archive.Series {
		key := ShardKey(ticker)
		if shards[key] == nil {
			shards[key] = make(map[string]shardRecord)
		}
		shards[key][ticker] = shardRecord{Candles: s.Candles}
	}

	for key, records := range shards {
		if err := writeShard(filepath.Join(dir, key+ShardSuffix), records); err != nil {
			return fmt.Errorf("write shard %s: %w", key, err)
		}
	}
	return nil
}

func writeShard(path string, records map[string]shardRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(records); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
