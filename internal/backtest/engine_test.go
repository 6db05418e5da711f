package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// weekdayArchive has SPY and AAA sessions on weekdays of days [4, 40), 1970-01-05 is a Monday
func weekdayArchive() *contracts.PriceArchive {
	archive := contracts.NewPriceArchive("SPY", "")
	for _, ticker := range []string{"SPY", "AAA"} {
		var candles []contracts.Candle
		for d := int64(4); d < 40; d++ {
			if wd := time.Unix(d*day, 0).UTC().Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			p := 10 + float64(d)
			candles = append(candles, contracts.Candle{Open: p, High: p, Low: p, Close: p, Volume: 1000, Timestamp: d * day})
		}
		archive.Series[ticker] = &contracts.TickerSeries{Ticker: ticker, Candles: candles}
	}
	return archive
}

type fakeRanker struct {
	calls int
	fail  map[string]error
}

func (f *fakeRanker) RankAt(_ context.Context, snap *contracts.Snapshot, _ time.Time) (*contracts.RankingTable, string, error) {
	f.calls++
	if err, ok := f.fail[snap.SessionDate.Format("2006-01-02")]; ok {
		return nil, "", err
	}
	table := &contracts.RankingTable{SessionDate: snap.SessionDate}
	for i, ticker := range snap.Universe() {
		table.Rows = append(table.Rows, contracts.RankedTicker{Ticker: ticker, RS: 100, Percentile: 99, Rank: i + 1})
	}
	return table, "miss", nil
}

type passAllScreener struct {
	calls int
}

func (s *passAllScreener) Screen(_ context.Context, snap *contracts.Snapshot, table *contracts.RankingTable) ([]contracts.ScreenResult, error) {
	s.calls++
	out := make([]contracts.ScreenResult, 0, len(table.Rows))
	for _, r := range table.Rows {
		out = append(out, contracts.ScreenResult{Ticker: r.Ticker, Date: snap.SessionDate, Rank: r.Rank, RS: r.RS, Percentile: r.Percentile, Passed: true})
	}
	return out, nil
}

type memoryStore struct {
	mu      sync.Mutex
	screens map[string][]contracts.ScreenResult
	trades  map[string][]contracts.Trade
}

func newMemoryStore() *memoryStore {
	return &memoryStore{screens: map[string][]contracts.ScreenResult{}, trades: map[string][]contracts.Trade{}}
}

func (m *memoryStore) LoadRanking(context.Context, time.Time) (*contracts.RankingTable, error) {
	return nil, contracts.ErrNotFound
}

func (m *memoryStore) SaveRanking(context.Context, *contracts.RankingTable) error { return nil }

func (m *memoryStore) LoadScreen(_ context.Context, session time.Time) ([]contracts.ScreenResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.screens[session.Format("2006-01-02")]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) SaveScreen(_ context.Context, session time.Time, results []contracts.ScreenResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screens[session.Format("2006-01-02")] = results
	return nil
}

func (m *memoryStore) SaveTrades(_ context.Context, session time.Time, trades []contracts.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[session.Format("2006-01-02")] = trades
	return nil
}

func (m *memoryStore) LoadTrades(_ context.Context, from, to time.Time) ([]contracts.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []contracts.Trade
	for _, ts := range m.trades {
		for _, t := range ts {
			if !t.SessionDate.Before(from) && !t.SessionDate.After(to) {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out, nil
}

func (m *memoryStore) Close() error { return nil }

func newTestEngine(t *testing.T, ranker SessionRanker, screener contracts.Screener, store contracts.ResultsStore) *Engine {
	t.Helper()
	exits := NewExitSimulator(*contracts.DefaultExitRulesConfig(), time.UTC)
	e, err := NewEngine(weekdayArchive(), ranker, screener, exits, store, EngineOptions{Metrics: metrics.NewRegistry()}, logger.Nop())
	require.NoError(t, err)
	return e
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEngine_DedupesWeekendSessions(t *testing.T) {
	ranker := &fakeRanker{}
	e := newTestEngine(t, ranker, &passAllScreener{}, nil)

	// 월 ~ 일: 토요일은 금요일, 일요일은 월요일 세션으로 매핑
	result, err := e.Run(context.Background(), RunConfig{
		Start:  date(1970, 1, 5),
		End:    date(1970, 1, 11),
		Stride: DailyStride,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 6, ranker.calls)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.RunID.String())

	seen := map[time.Time]bool{}
	for _, s := range result.Sessions {
		assert.False(t, seen[s.SessionDate], "session processed twice")
		seen[s.SessionDate] = true
	}
	assert.Equal(t, date(1970, 1, 12), result.Sessions[5].SessionDate)
}

func TestEngine_SimulatesFromSessionClose(t *testing.T) {
	store := newMemoryStore()
	e := newTestEngine(t, &fakeRanker{}, &passAllScreener{}, store)

	result, err := e.Run(context.Background(), RunConfig{
		Start:         date(1970, 1, 6),
		End:           date(1970, 1, 6),
		SimulateExits: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	tr := result.Trades[0]
	assert.Equal(t, "AAA", tr.Ticker)
	assert.Equal(t, 5*day, tr.EntryTimestamp)
	assert.Equal(t, 15.0, tr.EntryPrice)
	assert.Equal(t, date(1970, 1, 6), tr.SessionDate)
	assert.Greater(t, tr.ExitTimestamp, tr.EntryTimestamp, "exit uses candles after the snapshot cutoff")

	saved, err := store.LoadTrades(context.Background(), date(1970, 1, 1), date(1970, 12, 31))
	require.NoError(t, err)
	assert.Equal(t, result.Trades, saved)
}

func TestEngine_ResumesFromStoredScreens(t *testing.T) {
	store := newMemoryStore()
	cfg := RunConfig{Start: date(1970, 1, 5), End: date(1970, 1, 9), Stride: DailyStride}

	first := &passAllScreener{}
	_, err := newTestEngine(t, &fakeRanker{}, first, store).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, first.calls)

	second := &passAllScreener{}
	result, err := newTestEngine(t, &fakeRanker{}, second, store).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, second.calls, "stored screens are reused")
	assert.Equal(t, 5, result.Processed)

	cfg.Rescreen = true
	_, err = newTestEngine(t, &fakeRanker{}, second, store).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, second.calls)
}

func TestEngine_SessionErrors(t *testing.T) {
	t.Run("other errors are skipped", func(t *testing.T) {
		ranker := &fakeRanker{fail: map[string]error{"1970-01-07": errors.New("boom")}}
		result, err := newTestEngine(t, ranker, &passAllScreener{}, nil).Run(context.Background(), RunConfig{
			Start: date(1970, 1, 5), End: date(1970, 1, 9),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 4, result.Processed)
	})

	t.Run("missing benchmark aborts", func(t *testing.T) {
		ranker := &fakeRanker{fail: map[string]error{"1970-01-07": fmt.Errorf("rank: %w", contracts.ErrBenchmarkMissing)}}
		result, err := newTestEngine(t, ranker, &passAllScreener{}, nil).Run(context.Background(), RunConfig{
			Start: date(1970, 1, 5), End: date(1970, 1, 9),
		})
		assert.ErrorIs(t, err, contracts.ErrBenchmarkMissing)
		assert.Equal(t, 2, result.Processed)
	})

	t.Run("cancelled context stops between dates", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestEngine(t, &fakeRanker{}, &passAllScreener{}, nil).Run(ctx, RunConfig{
			Start: date(1970, 1, 5), End: date(1970, 1, 9),
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := newTestEngine(t, &fakeRanker{}, &passAllScreener{}, nil).Run(context.Background(), RunConfig{
			Start: date(1970, 1, 9), End: date(1970, 1, 5),
		})
		assert.Error(t, err)
	})
}

func TestEngine_LedgerOverWalkForward(t *testing.T) {
	e := newTestEngine(t, &fakeRanker{}, &passAllScreener{}, nil)
	result, err := e.Run(context.Background(), RunConfig{
		Start:         date(1970, 1, 5),
		End:           date(1970, 1, 30),
		Stride:        Stride{StrideWeek, 1},
		SimulateExits: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	summary, err := NewLedger(DefaultLedgerConfig(), logger.Nop()).Run(result.Trades)
	require.NoError(t, err)
	assert.Greater(t, summary.FinalCash, DefaultInitialCash, "rising series ends in profit")
}
