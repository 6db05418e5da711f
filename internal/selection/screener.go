package selection

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/internal/s2_signals"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// DefaultCandidateFraction is the share of the ranking table that is screened
const DefaultCandidateFraction = 0.2

// Config defines the screening rule set
type Config struct {
	CandidateFraction float64    `yaml:"candidate_fraction"` // 랭킹 상위 비율 (기본: 0.2)
	Gates             []GateSpec `yaml:"gates"`
}

// DefaultConfig returns the default screening configuration
func DefaultConfig() Config {
	return Config{
		CandidateFraction: DefaultCandidateFraction,
		Gates:             DefaultGates(),
	}
}

// Screener implements S3: gate evaluation over ranked candidates
// ⭐ SSOT: S3 스크리닝 로직은 여기서만
type Screener struct {
	config       Config
	gates        []Gate
	signals      *s2_signals.Builder
	fundamentals contracts.FundamentalsSource
	metrics      *metrics.Registry
	logger       *logger.Logger
}

// NewScreener creates a new screener, fundamentals may be nil when no gate needs them
func NewScreener(config Config, fundamentals contracts.FundamentalsSource, reg *metrics.Registry, log *logger.Logger) (*Screener, error) {
	gates, err := BuildGates(config.Gates)
	if err != nil {
		return nil, err
	}
	if config.CandidateFraction <= 0 {
		config.CandidateFraction = DefaultCandidateFraction
	}
	return &Screener{
		config:       config,
		gates:        gates,
		signals:      s2_signals.NewBuilder(log),
		fundamentals: fundamentals,
		metrics:      reg,
		logger:       log.WithStage(contracts.StageScreening.String()),
	}, nil
}

// Gates returns the enabled gate names in evaluation order
func (s *Screener) Gates() []string {
	names := make([]string, len(s.gates))
	for i, g := range s.gates {
		names[i] = g.Name()
	}
	return names
}

// Screen returns the passing candidates ordered by ticker
func (s *Screener) Screen(ctx context.Context, snapshot *contracts.Snapshot, table *contracts.RankingTable) ([]contracts.ScreenResult, error) {
	all, err := s.Evaluate(ctx, snapshot, table)
	if err != nil {
		return nil, err
	}
	passed := make([]contracts.ScreenResult, 0, len(all))
	for _, r := range all {
		if r.Passed {
			passed = append(passed, r)
		}
	}
	return passed, nil
}

// Evaluate runs every candidate through the gates, failures included
// Gates run in declaration order and stop at the first failure, so a
// fundamentals lookup only happens for candidates that reached that gate.
func (s *Screener) Evaluate(ctx context.Context, snapshot *contracts.Snapshot, table *contracts.RankingTable) ([]contracts.ScreenResult, error) {
	start := time.Now()
	candidates := table.Top(s.config.CandidateFraction)

	sets, err := s.signals.Build(ctx, snapshot, candidates)
	if err != nil {
		return nil, err
	}
	vix := s.signals.Market(snapshot)

	results := make([]contracts.ScreenResult, 0, len(sets))
	drops := make(map[string]int)
	passed := 0

	for _, c := range candidates {
		sigs, ok := sets[c.Ticker]
		if !ok {
			drops["no_data"]++
			continue
		}

		ticker := c.Ticker
		in := NewInput(ticker, sigs, vix, func() contracts.Fundamentals {
			if s.fundamentals == nil {
				return contracts.UnknownFundamentals(ticker)
			}
			return s.fundamentals.Lookup(ctx, ticker)
		})

		result := contracts.ScreenResult{
			Ticker:      ticker,
			Date:        snapshot.SessionDate,
			Rank:        c.Rank,
			RS:          c.RS,
			Percentile:  c.Percentile,
			Passed:      true,
			ScoreDetail: make(map[string]float64, len(s.gates)),
		}

		for _, g := range s.gates {
			score, ok := g.Evaluate(in)
			result.ScoreDetail[g.Name()] = score
			if !ok {
				result.Passed = false
				result.FailedGate = g.Name()
				drops[g.Name()]++
				s.metrics.GateDropped(g.Name())
				break
			}
		}
		result.Signals = sigs.Values()

		if result.Passed {
			passed++
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Ticker < results[j].Ticker
	})

	s.metrics.Passed(passed)
	s.metrics.ObserveStage(contracts.StageScreening.String(), start)

	s.logger.WithFields(map[string]interface{}{
		"session":      snapshot.SessionDate.Format("2006-01-02"),
		"total_input":  len(candidates),
		"passed":       passed,
		"filtered_out": len(candidates) - passed,
		"filters":      drops,
	}).Info("Screening completed")

	return results, nil
}
