package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/fundamentals"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/internal/s0_data"
	"github.com/wonny/aegis-rs/internal/s1_ranking"
	"github.com/wonny/aegis-rs/internal/selection"
	"github.com/wonny/aegis-rs/internal/store"
	"github.com/wonny/aegis-rs/internal/strategyconfig"
	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/database"
	"github.com/wonny/aegis-rs/pkg/httputil"
	"github.com/wonny/aegis-rs/pkg/logger"
	"github.com/wonny/aegis-rs/pkg/redis"
)

// fundamentalsCachePrefix namespaces fundamentals keys in Redis
const fundamentalsCachePrefix = "aegis-rs"

// app holds the shared dependencies of every command
// ⭐ SSOT: 커맨드 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	yaml     []byte
	log      *logger.Logger
	metrics  *metrics.Registry
	loc      *time.Location

	db    *database.DB
	redis *redis.Client
	store contracts.ResultsStore
	funds *fundamentals.Service
}

// appOptions selects the optional collaborators a command needs
type appOptions struct {
	results      bool
	fundamentals bool
	// cachedFundamentals serves fundamentals from the cache only, misses stay unknown
	cachedFundamentals bool
}

// fundamentalsOffline reports whether the provider must stay unwired
func fundamentalsOffline(fc config.FundamentalsConfig, opts appOptions) bool {
	return fc.Offline || opts.cachedFundamentals
}

// newApp loads configuration and opens the requested collaborators
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy rule set
	strategy, raw, err := loadStrategy(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{
		cfg:      cfg,
		strategy: strategy,
		yaml:     raw,
		log:      log,
		loc:      cfg.Archive.Location(),
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.NewRegistry()
	}

	// 4. Connect to database (postgres archive or results only)
	if cfg.Database.URL != "" && (cfg.Archive.Format == "postgres" || cfg.Results.Backend == "postgres") {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
	}

	// 5. Open results store
	if opts.results {
		st, err := store.Open(ctx, cfg, a.db, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open results store: %w", err)
		}
		a.store = st
	}

	// 6. Fundamentals service
	if opts.fundamentals {
		svc, err := a.newFundamentals(ctx, fundamentalsOffline(cfg.Fundamentals, opts))
		if err != nil {
			a.close()
			return nil, err
		}
		a.funds = svc
	}

	return a, nil
}

// loadStrategy reads STRATEGY_PATH (or --strategy), the default rule set otherwise
func loadStrategy(cfg *config.Config) (*strategyconfig.Config, []byte, error) {
	path := cfg.StrategyPath
	if strategyPath != "" {
		path = strategyPath
	}
	if path == "" {
		return strategyconfig.Default(), nil, nil
	}
	strategy, raw, err := strategyconfig.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	return strategy, raw, nil
}

// newFundamentals wires the quote provider, cache and lookup service
func (a *app) newFundamentals(ctx context.Context, offline bool) (*fundamentals.Service, error) {
	fc := a.cfg.Fundamentals

	var cache fundamentals.Cache
	switch fc.CacheBackend {
	case "redis":
		client, err := redis.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		cache = fundamentals.NewRedisCache(redis.NewCache(client, fundamentalsCachePrefix), redis.TTLWeek)
	default:
		fileCache, err := fundamentals.OpenFileCache(fc.CachePath)
		if err != nil {
			return nil, fmt.Errorf("open fundamentals cache: %w", err)
		}
		cache = fileCache
	}

	var provider contracts.FundamentalsProvider
	if !offline {
		// 재시도는 Service가 담당 (Attempts/Backoff)
		client := httputil.New(a.log).
			WithTimeout(fc.Timeout).
			DisableRetry().
			WithCircuitBreaker("fundamentals", 5, time.Minute)
		if fc.RateLimit > 0 {
			client = client.WithRateLimit(fc.RateLimit, 1)
		}
		provider = fundamentals.NewQuoteProvider(client, fc.BaseURL)
	}

	return fundamentals.NewService(provider, cache, fundamentals.Options{
		Attempts: fc.Attempts,
		Backoff:  fc.Backoff,
		Offline:  offline,
		Metrics:  a.metrics,
	}, a.log), nil
}

// fundamentalsSource returns the lookup service, nil when it was not opened
func (a *app) fundamentalsSource() contracts.FundamentalsSource {
	if a.funds == nil {
		return nil
	}
	return a.funds
}

// loadArchive loads the configured price archive
func (a *app) loadArchive(ctx context.Context) (*contracts.PriceArchive, error) {
	loader, err := s0_data.NewLoader(a.cfg, a.db, a.log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	archive, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	a.metrics.ObserveStage(contracts.StageArchive.String(), start)
	return archive, nil
}

// newEngine builds the walk-forward engine over a loaded archive
func (a *app) newEngine(archive *contracts.PriceArchive) (*backtest.Engine, error) {
	cal, err := s0_data.NewCalendar(archive, a.loc)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}

	ranker := s1_ranking.NewCachedRanker(
		s1_ranking.NewRanker(a.strategy.Ranking.Config, a.log),
		a.store,
		s1_ranking.CacheOptions{
			LookbackDays: a.strategy.Ranking.CacheLookbackDays,
			Resolve:      cal.ResolveDate,
			Metrics:      a.metrics,
		},
		a.log,
	)

	screener, err := selection.NewScreener(a.strategy.Screening, a.fundamentalsSource(), a.metrics, a.log)
	if err != nil {
		return nil, fmt.Errorf("build screener: %w", err)
	}

	exits := backtest.NewExitSimulator(a.strategy.Exit, a.loc)

	return backtest.NewEngine(archive, ranker, screener, exits, a.store, backtest.EngineOptions{
		Location: a.loc,
		Metrics:  a.metrics,
	}, a.log)
}

// rankAt ranks the session nearest to requested, store-backed when cached is set
func (a *app) rankAt(ctx context.Context, archive *contracts.PriceArchive, requested time.Time, rc s1_ranking.Config, cached bool) (*contracts.RankingTable, string, error) {
	cal, err := s0_data.NewCalendar(archive, a.loc)
	if err != nil {
		return nil, "", fmt.Errorf("build calendar: %w", err)
	}
	snapshot := s0_data.TakeSnapshot(archive, cal.Nearest(requested), a.loc)

	ranker := s1_ranking.NewRanker(rc, a.log)
	if !cached {
		table, err := ranker.Rank(ctx, snapshot)
		return table, s1_ranking.CacheMiss, err
	}

	return s1_ranking.NewCachedRanker(ranker, a.store, s1_ranking.CacheOptions{
		LookbackDays: a.strategy.Ranking.CacheLookbackDays,
		Resolve:      cal.ResolveDate,
		Metrics:      a.metrics,
	}, a.log).RankAt(ctx, snapshot, requested)
}

// metricsHandler returns the /metrics handler, nil when metrics are off
func (a *app) metricsHandler() http.Handler {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Handler()
}

// close flushes caches and releases connections
func (a *app) close() {
	if a.funds != nil {
		if err := a.funds.Flush(context.Background()); err != nil {
			a.log.WithError(err).Warn("Failed to flush fundamentals cache")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close results store")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseDay parses a YYYY-MM-DD flag in the market location, def when empty
func (a *app) parseDay(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(dayLayout, raw, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}
