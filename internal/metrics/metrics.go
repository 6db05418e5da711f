package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics of the pipeline
// ⭐ SSOT: 메트릭 정의는 여기서만
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	StageDuration       *prometheus.HistogramVec
	RankingCache        *prometheus.CounterVec
	RankedTickers       prometheus.Gauge
	GateDrops           *prometheus.CounterVec
	ScreenPassed        prometheus.Counter
	TradesSimulated     *prometheus.CounterVec
	SessionsProcessed   prometheus.Counter
	FundamentalsLookups *prometheus.CounterVec
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_rs_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		RankingCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_rs_ranking_cache_total",
				Help: "Ranking cache lookups by result (memory, store, miss)",
			},
			[]string{"result"},
		),

		RankedTickers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_rs_ranked_tickers",
				Help: "Rows of the most recent ranking table",
			},
		),

		GateDrops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_rs_screen_gate_drops_total",
				Help: "Candidates dropped by each screening gate",
			},
			[]string{"gate"},
		),

		ScreenPassed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_rs_screen_passed_total",
				Help: "Candidates that passed every enabled gate",
			},
		),

		TradesSimulated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_rs_trades_simulated_total",
				Help: "Simulated trades by exit reason",
			},
			[]string{"exit_reason"},
		),

		SessionsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_rs_backtest_sessions_total",
				Help: "Walk-forward sessions processed",
			},
		),

		FundamentalsLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_rs_fundamentals_lookups_total",
				Help: "Fundamentals lookups by source (cache, network, unknown)",
			},
			[]string{"source"},
		),
	}

	r.registry.MustRegister(
		r.StageDuration,
		r.RankingCache,
		r.RankedTickers,
		r.GateDrops,
		r.ScreenPassed,
		r.TradesSimulated,
		r.SessionsProcessed,
		r.FundamentalsLookups,
	)
	return r
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics HTTP handler
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records the elapsed time of a stage since start
func (r *Registry) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RankingCacheResult counts one ranking cache lookup
func (r *Registry) RankingCacheResult(result string) {
	if r == nil {
		return
	}
	r.RankingCache.WithLabelValues(result).Inc()
}

// SetRanked records the size of the latest ranking table
func (r *Registry) SetRanked(n int) {
	if r == nil {
		return
	}
	r.RankedTickers.Set(float64(n))
}

// GateDropped counts a candidate dropped by gate
func (r *Registry) GateDropped(gate string) {
	if r == nil {
		return
	}
	r.GateDrops.WithLabelValues(gate).Inc()
}

// Passed counts candidates that passed the whole screen
func (r *Registry) Passed(n int) {
	if r == nil {
		return
	}
	r.ScreenPassed.Add(float64(n))
}

// TradeSimulated counts one simulated trade
func (r *Registry) TradeSimulated(reason string) {
	if r == nil {
		return
	}
	r.TradesSimulated.WithLabelValues(reason).Inc()
}

// SessionProcessed counts one walk-forward session
func (r *Registry) SessionProcessed() {
	if r == nil {
		return
	}
	r.SessionsProcessed.Inc()
}

// FundamentalsLookup counts one fundamentals lookup by source
func (r *Registry) FundamentalsLookup(source string) {
	if r == nil {
		return
	}
	r.FundamentalsLookups.WithLabelValues(source).Inc()
}
