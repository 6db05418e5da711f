package s1_ranking

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/pkg/logger"
)

type countingRanker struct {
	calls int
}

func (r *countingRanker) Rank(_ context.Context, snap *contracts.Snapshot) (*contracts.RankingTable, error) {
	r.calls++
	return &contracts.RankingTable{
		SessionDate: snap.SessionDate,
		Rows:        []contracts.RankedTicker{{Ticker: "AAA", RS: 120, Percentile: 99, Rank: 1}},
	}, nil
}

type memoryStore struct {
	rankings map[string]*contracts.RankingTable
	saved    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rankings: make(map[string]*contracts.RankingTable)}
}

func (s *memoryStore) LoadRanking(_ context.Context, d time.Time) (*contracts.RankingTable, error) {
	t, ok := s.rankings[dateKey(d)]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return t, nil
}

func (s *memoryStore) SaveRanking(_ context.Context, t *contracts.RankingTable) error {
	s.saved++
	s.rankings[dateKey(t.SessionDate)] = t
	return nil
}

func (s *memoryStore) LoadScreen(context.Context, time.Time) ([]contracts.ScreenResult, error) {
	return nil, contracts.ErrNotFound
}
func (s *memoryStore) SaveScreen(context.Context, time.Time, []contracts.ScreenResult) error {
	return nil
}
func (s *memoryStore) SaveTrades(context.Context, time.Time, []contracts.Trade) error { return nil }
func (s *memoryStore) LoadTrades(context.Context, time.Time, time.Time) ([]contracts.Trade, error) {
	return nil, nil
}
func (s *memoryStore) Close() error { return nil }

var (
	friday   = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	saturday = friday.AddDate(0, 0, 1)
	sunday   = friday.AddDate(0, 0, 2)
	monday   = friday.AddDate(0, 0, 3)
)

// weekendResolver maps Saturday to Friday and Sunday to Monday
func weekendResolver(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func TestCachedRanker_MemoryHit(t *testing.T) {
	inner := &countingRanker{}
	store := newMemoryStore()
	reg := metrics.NewRegistry()
	cache := NewCachedRanker(inner, store, CacheOptions{LookbackDays: DefaultLookbackDays, Metrics: reg}, logger.Nop())

	snap := &contracts.Snapshot{SessionDate: friday}
	first, err := cache.Rank(context.Background(), snap)
	require.NoError(t, err)
	second, err := cache.Rank(context.Background(), snap)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RankingCache.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RankingCache.WithLabelValues(CacheMemory)))
}

func TestCachedRanker_StoreLookbackSameSession(t *testing.T) {
	inner := &countingRanker{}
	store := newMemoryStore()
	store.rankings[dateKey(friday)] = &contracts.RankingTable{SessionDate: friday}

	cache := NewCachedRanker(inner, store, CacheOptions{LookbackDays: 10, Resolve: weekendResolver}, logger.Nop())

	_, source, err := cache.RankAt(context.Background(), &contracts.Snapshot{SessionDate: friday}, saturday)
	require.NoError(t, err)
	assert.Equal(t, CacheStore, source)
	assert.Zero(t, inner.calls)
}

func TestCachedRanker_LookbackRejectsOtherSession(t *testing.T) {
	inner := &countingRanker{}
	store := newMemoryStore()
	store.rankings[dateKey(friday)] = &contracts.RankingTable{SessionDate: friday}

	cache := NewCachedRanker(inner, store, CacheOptions{LookbackDays: 10, Resolve: weekendResolver}, logger.Nop())

	table, source, err := cache.RankAt(context.Background(), &contracts.Snapshot{SessionDate: monday}, sunday)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, source)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, monday, table.SessionDate)
	assert.Contains(t, store.rankings, dateKey(monday))
}

func TestCachedRanker_NoStore(t *testing.T) {
	inner := &countingRanker{}
	cache := NewCachedRanker(inner, nil, CacheOptions{}, logger.Nop())

	for i := 0; i < 3; i++ {
		_, err := cache.Rank(context.Background(), &contracts.Snapshot{SessionDate: friday})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.Len())
}
