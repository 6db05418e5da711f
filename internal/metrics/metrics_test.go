package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.RankingCacheResult("miss")
	r.RankingCacheResult("miss")
	r.RankingCacheResult("store")
	r.GateDropped("volume_surge")
	r.TradeSimulated("Gain")
	r.SetRanked(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RankingCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RankingCache.WithLabelValues("store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GateDrops.WithLabelValues("volume_surge")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.RankedTickers))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RankingCacheResult("miss")
		r.ObserveStage("S1_RANKING", time.Now())
		r.SessionProcessed()
		r.FundamentalsLookup("cache")
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.SessionProcessed()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "aegis_rs_backtest_sessions_total 1"))
}
