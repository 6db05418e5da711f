package s1_ranking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// DefaultLookbackDays is how far back a stored table may be keyed
const DefaultLookbackDays = 10

// Cache lookup outcomes
const (
	CacheMemory = "memory"
	CacheStore  = "store"
	CacheMiss   = "miss"
)

// CacheOptions configures the ranking cache
type CacheOptions struct {
	LookbackDays int
	// Resolve maps a calendar date to its trading session date, nil means identity
	Resolve func(time.Time) time.Time
	Metrics *metrics.Registry
}

// CachedRanker memoises ranking tables by session date
// ⭐ SSOT: 랭킹 캐시 (메모리 → 결과 저장소 → 계산)
type CachedRanker struct {
	ranker   contracts.Ranker
	store    contracts.ResultsStore
	lookback int
	resolve  func(time.Time) time.Time
	metrics  *metrics.Registry
	logger   *logger.Logger

	mu     sync.Mutex
	memory map[string]*contracts.RankingTable
}

// NewCachedRanker wraps a ranker, store may be nil for memory-only caching
func NewCachedRanker(ranker contracts.Ranker, store contracts.ResultsStore, opts CacheOptions, log *logger.Logger) *CachedRanker {
	if opts.LookbackDays < 0 {
		opts.LookbackDays = 0
	}
	resolve := opts.Resolve
	if resolve == nil {
		resolve = func(t time.Time) time.Time { return t }
	}
	return &CachedRanker{
		ranker:   ranker,
		store:    store,
		lookback: opts.LookbackDays,
		resolve:  resolve,
		metrics:  opts.Metrics,
		logger:   log.WithField("module", "ranking_cache"),
		memory:   make(map[string]*contracts.RankingTable),
	}
}

// Rank implements contracts.Ranker keyed by the snapshot session
func (c *CachedRanker) Rank(ctx context.Context, snapshot *contracts.Snapshot) (*contracts.RankingTable, error) {
	table, _, err := c.RankAt(ctx, snapshot, snapshot.SessionDate)
	return table, err
}

// RankAt returns the table for the snapshot session, requested is the calendar date asked for
// A stored table keyed by requested, requested-1, ... requested-LookbackDays is reused
// only when that key resolves to the same session.
func (c *CachedRanker) RankAt(ctx context.Context, snapshot *contracts.Snapshot, requested time.Time) (*contracts.RankingTable, string, error) {
	session := dateKey(snapshot.SessionDate)

	c.mu.Lock()
	table, ok := c.memory[session]
	c.mu.Unlock()
	if ok {
		c.metrics.RankingCacheResult(CacheMemory)
		return table, CacheMemory, nil
	}

	if table := c.lookup(ctx, session, requested); table != nil {
		table.SessionDate = snapshot.SessionDate
		c.remember(session, table)
		c.metrics.RankingCacheResult(CacheStore)
		return table, CacheStore, nil
	}

	start := time.Now()
	table, err := c.ranker.Rank(ctx, snapshot)
	if err != nil {
		return nil, "", err
	}
	c.metrics.ObserveStage(contracts.StageRanking.String(), start)
	c.metrics.SetRanked(len(table.Rows))
	c.metrics.RankingCacheResult(CacheMiss)

	if c.store != nil {
		if err := c.store.SaveRanking(ctx, table); err != nil {
			c.logger.WithError(err).WithField("session", session).Warn("Failed to persist ranking")
		}
	}
	c.remember(session, table)
	return table, CacheMiss, nil
}

// lookup scans the store for a table belonging to session
func (c *CachedRanker) lookup(ctx context.Context, session string, requested time.Time) *contracts.RankingTable {
	if c.store == nil {
		return nil
	}
	for i := 0; i <= c.lookback; i++ {
		day := requested.AddDate(0, 0, -i)
		if dateKey(c.resolve(day)) != session {
			continue
		}

		table, err := c.store.LoadRanking(ctx, day)
		if errors.Is(err, contracts.ErrNotFound) {
			continue
		}
		if err != nil {
			c.logger.WithError(err).WithField("date", dateKey(day)).Warn("Ranking store lookup failed")
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"session": session,
			"key":     dateKey(day),
		}).Debug("Ranking loaded from store")
		return table
	}
	return nil
}

func (c *CachedRanker) remember(session string, table *contracts.RankingTable) {
	c.mu.Lock()
	c.memory[session] = table
	c.mu.Unlock()
}

// Len returns the number of tables held in memory
func (c *CachedRanker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memory)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
