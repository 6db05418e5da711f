package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/config"
	"github.com/wonny/aegis-rs/pkg/database"
	"github.com/wonny/aegis-rs/pkg/logger"
)

var session = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleTable() *contracts.RankingTable {
	return &contracts.RankingTable{
		SessionDate: session,
		Rows: []contracts.RankedTicker{
			{Rank: 1, Ticker: "NVDA", RS: 187.25, Percentile: 99, RS1M: 170.5, RS3M: 150, RS6M: 120.75, Percentile1M: 98, Percentile3M: 97, Percentile6M: 90},
			{Rank: 2, Ticker: "AMD", RS: 140.1, Percentile: 95, RS1M: 130, RS3M: 110, RS6M: 99.5, Percentile1M: 90, Percentile3M: 88, Percentile6M: 70},
		},
	}
}

func sampleScreen() []contracts.ScreenResult {
	return []contracts.ScreenResult{
		{
			Ticker: "AMD", Date: session, Rank: 2, RS: 140.1, Percentile: 95, Passed: true,
			ScoreDetail: map[string]float64{"above_sma22": 3.5, "market_cap": 52.4},
			Signals:     map[string]float64{"close": 171.2},
		},
		{Ticker: "NVDA", Date: session, Rank: 1, RS: 187.25, Percentile: 99, Passed: true, ScoreDetail: map[string]float64{}, Signals: map[string]float64{}},
	}
}

func sampleTrades() []contracts.Trade {
	return []contracts.Trade{
		{
			Ticker: "AMD", SessionDate: session, EntryDate: session, EntryTimestamp: session.Unix(), EntryPrice: 171.2,
			ExitDate: session.AddDate(0, 0, 12), ExitTimestamp: session.AddDate(0, 0, 12).Unix(), ExitPrice: 210,
			ReturnPct: 22.66, HeldSessions: 8, MaxClose: 211, MinClose: 168, ExitReason: contracts.ExitGain,
		},
	}
}

// exerciseStore checks the contract every backend must honour
func exerciseStore(t *testing.T, s contracts.ResultsStore) {
	ctx := context.Background()

	_, err := s.LoadRanking(ctx, session)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	_, err = s.LoadScreen(ctx, session)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	// 두 번 저장해도 결과 동일 (멱등)
	for i := 0; i < 2; i++ {
		require.NoError(t, s.SaveRanking(ctx, sampleTable()))
		require.NoError(t, s.SaveScreen(ctx, session, sampleScreen()))
		require.NoError(t, s.SaveTrades(ctx, session, sampleTrades()))
	}

	table, err := s.LoadRanking(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, sampleTable().Rows, table.Rows)

	screen, err := s.LoadScreen(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, sampleScreen(), screen)

	trades, err := s.LoadTrades(ctx, session.AddDate(0, 0, -1), session.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, sampleTrades(), trades)

	none, err := s.LoadTrades(ctx, session.AddDate(0, 0, 1), session.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Empty(t, none)

	// 통과 종목 없는 스크린도 "저장됨"으로 조회
	empty := session.AddDate(0, 0, 3)
	require.NoError(t, s.SaveScreen(ctx, empty, nil))
	got, err := s.LoadScreen(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVStore(t *testing.T) {
	s, err := NewCSVStore(t.TempDir(), time.UTC)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	sessions, err := s.Sessions(ScreenPrefix)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{session, session.AddDate(0, 0, 3)}, sessions)
}

func TestCSVStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir, time.UTC)
	require.NoError(t, err)
	require.NoError(t, s.SaveRanking(context.Background(), sampleTable()))

	data, err := os.ReadFile(filepath.Join(dir, "rs_stocks_2024-03-15.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rank,Ticker,Relative Strength,Percentile,1 Month Ago,3 Months Ago,6 Months Ago")
	assert.Contains(t, string(data), "1,NVDA,187.25,99,98,97,90")
}

func TestCSVStore_ReadsLegacyRanking(t *testing.T) {
	dir := t.TempDir()
	legacy := "Rank,Ticker,Relative Strength,Percentile,1 Month Ago,3 Months Ago,6 Months Ago\n" +
		"1,META,201.5,99.0,97,96,95\n2,AAPL,150,90,80,70,60\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rs_stocks_2024-03-15.csv"), []byte(legacy), 0o644))

	s, err := NewCSVStore(dir, time.UTC)
	require.NoError(t, err)
	table, err := s.LoadRanking(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, contracts.RankedTicker{Rank: 1, Ticker: "META", RS: 201.5, Percentile: 99, Percentile1M: 97, Percentile3M: 96, Percentile6M: 95}, table.Rows[0])
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"), time.UTC, logger.Nop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{Results: config.ResultsConfig{Backend: "csv", Dir: t.TempDir()}}
	s, err := Open(context.Background(), cfg, nil, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	cfg.Results.Backend = "postgres"
	_, err = Open(context.Background(), cfg, nil, logger.Nop())
	assert.Error(t, err)

	cfg.Results.Backend = "parquet"
	_, err = Open(context.Background(), cfg, nil, logger.Nop())
	assert.Error(t, err)
}

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 0}})
	require.NoError(t, err)
	defer db.Close()

	_, _ = db.Pool.Exec(ctx, `DROP TABLE IF EXISTS result_sessions, rankings, screens, trades`)
	require.NoError(t, db.Migrate(ctx, PostgresSchema...))
	exerciseStore(t, NewPostgresStore(db.Pool, time.UTC, logger.Nop()))
}
