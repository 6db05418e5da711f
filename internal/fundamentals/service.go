package fundamentals

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Lookup sources
const (
	SourceMemory   = "memory"
	SourceCache    = "cache"
	SourceProvider = "provider"
	SourceUnknown  = "unknown"
)

// Options configures the fundamentals service
type Options struct {
	Attempts int           // 기본: 2
	Backoff  time.Duration // 기본: 2s
	Offline  bool          // 캐시 미스 시 외부 조회 금지
	Metrics  *metrics.Registry
}

// Service serves fundamentals from memory, then the cache, then the provider
// ⭐ SSOT: 스크리닝 중 펀더멘털 조회는 여기서만
type Service struct {
	provider contracts.FundamentalsProvider
	cache    Cache
	opts     Options
	logger   *logger.Logger

	mu     sync.Mutex
	memory map[string]contracts.Fundamentals
}

// NewService creates a lookup service, provider may be nil (offline only)
func NewService(provider contracts.FundamentalsProvider, cache Cache, opts Options, log *logger.Logger) *Service {
	if opts.Attempts < 1 {
		opts.Attempts = 2
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if provider == nil {
		opts.Offline = true
	}
	return &Service{
		provider: provider,
		cache:    cache,
		opts:     opts,
		logger:   log.WithField("module", "fundamentals"),
		memory:   make(map[string]contracts.Fundamentals),
	}
}

// Offline reports whether cache misses resolve to unknown without a fetch
func (s *Service) Offline() bool {
	return s.opts.Offline
}

// Lookup never fails, an exhausted lookup returns an unknown record
func (s *Service) Lookup(ctx context.Context, ticker string) contracts.Fundamentals {
	s.mu.Lock()
	f, ok := s.memory[ticker]
	s.mu.Unlock()
	if ok {
		s.opts.Metrics.FundamentalsLookup(SourceMemory)
		return f
	}

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, ticker)
		if err != nil {
			s.logger.WithError(err).WithField("ticker", ticker).Warn("Fundamentals cache read failed")
		}
		if found {
			s.remember(cached)
			s.opts.Metrics.FundamentalsLookup(SourceCache)
			return cached
		}
	}

	if s.opts.Offline {
		f := contracts.UnknownFundamentals(ticker)
		s.remember(f)
		s.opts.Metrics.FundamentalsLookup(SourceUnknown)
		return f
	}

	f, err := s.fetch(ctx, ticker)
	if err != nil {
		s.logger.WithError(err).WithField("ticker", ticker).Warn("Fundamentals unknown")
		f = contracts.UnknownFundamentals(ticker)
		s.remember(f)
		s.opts.Metrics.FundamentalsLookup(SourceUnknown)
		return f
	}

	s.remember(f)
	if s.cache != nil {
		if err := s.cache.Put(ctx, f); err != nil {
			s.logger.WithError(err).WithField("ticker", ticker).Warn("Fundamentals cache write failed")
		}
	}
	s.opts.Metrics.FundamentalsLookup(SourceProvider)
	return f
}

// fetch calls the provider up to Attempts times, sleeping Backoff between attempts
func (s *Service) fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		f, err := s.provider.Fetch(ctx, ticker)
		if err == nil {
			return f, nil
		}
		lastErr = err

		if attempt == s.opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return contracts.Fundamentals{}, ctx.Err()
		case <-time.After(s.opts.Backoff):
		}
	}
	return contracts.Fundamentals{}, errors.Join(contracts.ErrUnknownFundamentals, lastErr)
}

func (s *Service) remember(f contracts.Fundamentals) {
	s.mu.Lock()
	s.memory[f.Ticker] = f
	s.mu.Unlock()
}

// PrefetchReport summarises a cache warm-up
type PrefetchReport struct {
	Requested int `json:"requested"`
	Cached    int `json:"cached"`
	Fetched   int `json:"fetched"`
	Failed    int `json:"failed"`
}

// Prefetch warms the cache for tickers with at most workers concurrent lookups
func (s *Service) Prefetch(ctx context.Context, tickers []string, workers int) (*PrefetchReport, error) {
	if workers < 1 {
		workers = 1
	}
	report := &PrefetchReport{Requested: len(tickers)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if s.cache != nil {
				if _, found, _ := s.cache.Get(gctx, ticker); found {
					mu.Lock()
					report.Cached++
					mu.Unlock()
					return nil
				}
			}

			f := s.Lookup(gctx, ticker)
			mu.Lock()
			if f.Known {
				report.Fetched++
			} else {
				report.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			return report, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"requested": report.Requested,
		"cached":    report.Cached,
		"fetched":   report.Fetched,
		"failed":    report.Failed,
	}).Info("Fundamentals prefetch completed")

	return report, nil
}

// Flush persists cache writes made by Lookup
func (s *Service) Flush(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}
