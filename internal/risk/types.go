package risk

import (
	"time"

	"github.com/google/uuid"
)

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수 퍼센트로 표현
// - VaR=5 → 95% 신뢰수준에서 거래당 최대 5% 손실
// - CVaR=7 → 5% tail에서 평균 7% 손실
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// MonteCarloConfig controls the trade-order bootstrap
type MonteCarloConfig struct {
	NumSimulations   int       `json:"num_simulations"`   // 기본: 1000
	PositionFraction float64   `json:"position_fraction"` // 거래당 자본 비중 (0, 1]
	ConfidenceLevels []float64 `json:"confidence_levels"`
	Seed             int64     `json:"seed"`        // 재현성용 시드 (0=시간)
	MinSamples       int       `json:"min_samples"` // 이보다 적은 거래면 분석 거부
}

// DefaultMonteCarloConfig returns the default bootstrap settings
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		NumSimulations:   1000,
		PositionFraction: 0.1,
		ConfidenceLevels: []float64{0.95, 0.99},
		MinSamples:       30,
	}
}

// Distribution summarises one simulated quantity
type Distribution struct {
	Mean float64 `json:"mean"`
	P5   float64 `json:"p5"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
}

// TradeRiskReport is the risk view of a closed-trade list, all values in percent
type TradeRiskReport struct {
	RunID       uuid.UUID        `json:"run_id"`
	Trades      int              `json:"trades"`
	MeanReturn  float64          `json:"mean_return"`
	StdDev      float64          `json:"std_dev"`
	VaR         []VaRResult      `json:"var"`
	FinalReturn Distribution     `json:"final_return"` // 시뮬레이션 경로별 누적 수익률
	MaxDrawdown Distribution     `json:"max_drawdown"` // 시뮬레이션 경로별 MDD
	LossProb    float64          `json:"loss_probability"`
	Simulated   bool             `json:"simulated"`
	Config      MonteCarloConfig `json:"config"`
	CreatedAt   time.Time        `json:"created_at"`
}
