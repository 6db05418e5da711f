package s1_ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Config holds ranking thresholds
type Config struct {
	MinHistory    int     `yaml:"min_history"`    // 최소 세션 수 (기본: 120)
	MaxRS         float64 `yaml:"max_rs"`         // 이 값 이상은 데이터 오류로 제외 (기본: 590)
	MinPercentile int     `yaml:"min_percentile"` // 출력 최소 백분위 (기본: 85)
	Buckets       int     `yaml:"buckets"`        // 백분위 구간 수 (기본: 100)
	MonthSessions int     `yaml:"month_sessions"` // 1개월 세션 수 (기본: 20)
	// RankBenchmark puts the benchmark itself into the qcut population (RS 100)
	RankBenchmark bool `yaml:"rank_benchmark"`
}

// DefaultConfig returns the default ranking configuration
func DefaultConfig() Config {
	return Config{
		MinHistory:    120,
		MaxRS:         590,
		MinPercentile: 85,
		Buckets:       100,
		MonthSessions: 20,
	}
}

// Ranker implements S1: RS ranking of a point-in-time snapshot
// ⭐ SSOT: S1 랭킹 로직은 여기서만
type Ranker struct {
	config Config
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(config Config, log *logger.Logger) *Ranker {
	d := DefaultConfig()
	if config.MinHistory <= 0 {
		config.MinHistory = d.MinHistory
	}
	if config.MaxRS <= 0 {
		config.MaxRS = d.MaxRS
	}
	if config.Buckets <= 0 {
		config.Buckets = d.Buckets
	}
	if config.MonthSessions <= 0 {
		config.MonthSessions = d.MonthSessions
	}
	return &Ranker{
		config: config,
		logger: log.WithStage(contracts.StageRanking.String()),
	}
}

// Config returns the effective configuration
func (r *Ranker) Config() Config {
	return r.config
}

// Rank scores every ticker of the snapshot against the benchmark
func (r *Ranker) Rank(ctx context.Context, snapshot *contracts.Snapshot) (*contracts.RankingTable, error) {
	bench := snapshot.Get(snapshot.Benchmark)
	if bench.Len() == 0 {
		return nil, fmt.Errorf("rank %s: %w: %q", snapshot.SessionDate.Format("2006-01-02"), contracts.ErrBenchmarkMissing, snapshot.Benchmark)
	}
	ref := bench.Closes()

	month := r.config.MonthSessions
	universe := snapshot.Universe()
	if r.config.RankBenchmark {
		universe = append(universe, snapshot.Benchmark)
		sort.Strings(universe)
	}
	rows := make([]contracts.RankedTicker, 0, len(universe))
	short, implausible := 0, 0

	for i, ticker := range universe {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		closes := snapshot.Series[ticker].Closes()
		if len(closes) < r.config.MinHistory {
			short++
			continue
		}

		rs := RelativeStrength(closes, ref)
		if rs >= r.config.MaxRS {
			implausible++
			r.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"rs":     rs,
			}).Debug("Implausible RS excluded")
			continue
		}

		rows = append(rows, contracts.RankedTicker{
			Ticker: ticker,
			RS:     rs,
			RS1M:   RelativeStrength(dropLast(closes, month), dropLast(ref, month)),
			RS3M:   RelativeStrength(dropLast(closes, 3*month), dropLast(ref, 3*month)),
			RS6M:   RelativeStrength(dropLast(closes, 6*month), dropLast(ref, 6*month)),
		})
	}

	r.assignPercentiles(rows)

	// Sort by RS (descending), 동점은 티커 순서 유지
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RS > rows[j].RS
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	kept := rows[:0]
	for _, row := range rows {
		if row.Percentile >= r.config.MinPercentile {
			kept = append(kept, row)
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"session":     snapshot.SessionDate.Format("2006-01-02"),
		"universe":    len(universe),
		"scored":      len(rows),
		"kept":        len(kept),
		"short":       short,
		"implausible": implausible,
	}).Info("Ranking completed")

	return &contracts.RankingTable{
		SessionDate: snapshot.SessionDate,
		Rows:        kept,
	}, nil
}

// assignPercentiles buckets each RS column independently
func (r *Ranker) assignPercentiles(rows []contracts.RankedTicker) {
	column := func(get func(contracts.RankedTicker) float64) []int {
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = get(row)
		}
		return QCut(values, r.config.Buckets)
	}

	rs := column(func(t contracts.RankedTicker) float64 { return t.RS })
	m1 := column(func(t contracts.RankedTicker) float64 { return t.RS1M })
	m3 := column(func(t contracts.RankedTicker) float64 { return t.RS3M })
	m6 := column(func(t contracts.RankedTicker) float64 { return t.RS6M })

	for i := range rows {
		rows[i].Percentile = rs[i]
		rows[i].Percentile1M = m1[i]
		rows[i].Percentile3M = m3[i]
		rows[i].Percentile6M = m6[i]
	}
}
