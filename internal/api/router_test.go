package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rs/internal/api/handlers"
	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/internal/scheduler"
	"github.com/wonny/aegis-rs/internal/store"
	"github.com/wonny/aegis-rs/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func seededRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewCSVStore(t.TempDir(), time.UTC)
	require.NoError(t, err)

	require.NoError(t, st.SaveRanking(ctx, &contracts.RankingTable{SessionDate: day(2), Rows: []contracts.RankedTicker{
		{Ticker: "AAA", RS: 150, Percentile: 98, Rank: 1},
		{Ticker: "BBB", RS: 110, Percentile: 60, Rank: 2},
	}}))
	require.NoError(t, st.SaveScreen(ctx, day(2), []contracts.ScreenResult{
		{Ticker: "AAA", Date: day(2), Rank: 1, RS: 150, Percentile: 98, Passed: true,
			ScoreDetail: map[string]float64{"sma_22": 1}, Signals: map[string]float64{"close": 10}},
	}))
	require.NoError(t, st.SaveTrades(ctx, day(2), []contracts.Trade{
		{Ticker: "AAA", SessionDate: day(2), EntryDate: day(2), EntryTimestamp: day(2).Unix(), EntryPrice: 10,
			ExitDate: day(5), ExitTimestamp: day(5).Unix(), ExitPrice: 11, ReturnPct: 10, HeldSessions: 3,
			ExitReason: contracts.ExitGain},
	}))

	results := handlers.NewResultsHandler(st, backtest.DefaultLedgerConfig(), time.UTC, logger.Nop())
	sched := scheduler.New(scheduler.DefaultOptions(), logger.Nop())

	return NewRouter(RouterDeps{
		Results: results,
		Jobs:    handlers.NewJobsHandler(sched),
		Metrics: metrics.NewRegistry().Handler(),
	}, logger.Nop())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := get(t, seededRouter(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_Ranking(t *testing.T) {
	router := seededRouter(t)

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"all rows", "/api/rankings/2024-01-02", http.StatusOK, 2},
		{"filtered", "/api/rankings/2024-01-02?min_percentile=85", http.StatusOK, 1},
		{"missing session", "/api/rankings/2024-01-03", http.StatusNotFound, 0},
		{"bad date", "/api/rankings/yesterday", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Count int `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.count, body.Count)
		})
	}
}

func TestRouter_RankingTradingView(t *testing.T) {
	rec := get(t, seededRouter(t), "/api/rankings/2024-01-02?format=tradingview")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 5, "only the 98th percentile is present")
	assert.Equal(t, "20240102T,0,1000,0,150.0,0", lines[len(lines)-1])
}

func TestRouter_Screen(t *testing.T) {
	router := seededRouter(t)

	rec := get(t, router, "/api/screens/2024-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticker":"AAA"`)

	rec = get(t, router, "/api/screens/2024-01-02?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Ticker,Market Cap,Close Price"))
}

func TestRouter_TradesAndTimeline(t *testing.T) {
	router := seededRouter(t)

	rec := get(t, router, "/api/trades?from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = get(t, router, "/api/trades?from=2024-02-01&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, router, "/api/timeline?from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary contracts.LedgerSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.InDelta(t, 110.0, summary.FinalCash, 1e-9)
	assert.Len(t, summary.Events, 2)

	rec = get(t, router, "/api/timeline?from=2024-01-01&to=2024-01-31&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "End,Sell,AAA,10.0%")

	rec = get(t, router, "/api/timeline?initial_cash=-5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_JobsAndMetrics(t *testing.T) {
	router := seededRouter(t)

	rec := get(t, router, "/api/jobs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SkipsUnsetHandlers(t *testing.T) {
	r := NewRouter(RouterDeps{}, logger.Nop())
	rec := get(t, r, "/api/rankings/2024-01-02")
	assert.Equal(t, http.StatusNotFound, rec.Code, "results routes are not mounted without a handler")
}
