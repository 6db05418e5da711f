package risk

import (
	"context"
	"math/rand"
	"time"
)

// MonteCarloSimulator resamples the closed-trade sequence with replacement
type MonteCarloSimulator struct {
	config MonteCarloConfig
	rng    *rand.Rand
}

// NewMonteCarloSimulator creates a simulator, seeded by time when Seed is 0
func NewMonteCarloSimulator(config MonteCarloConfig) *MonteCarloSimulator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MonteCarloSimulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Simulate draws NumSimulations paths of len(returns) trades each
// 각 거래는 자본의 PositionFraction 만큼에 적용되고 복리로 누적
func (mc *MonteCarloSimulator) Simulate(ctx context.Context, returns []float64) (finals, drawdowns []float64, err error) {
	n := mc.config.NumSimulations
	finals = make([]float64, 0, n)
	drawdowns = make([]float64, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		equity, peak, mdd := 1.0, 1.0, 0.0
		for range returns {
			r := returns[mc.rng.Intn(len(returns))]
			equity *= 1 + mc.config.PositionFraction*r/100
			if equity > peak {
				peak = equity
			}
			if dd := (peak - equity) / peak; dd > mdd {
				mdd = dd
			}
		}
		finals = append(finals, (equity-1)*100)
		drawdowns = append(drawdowns, mdd*100)
	}
	return finals, drawdowns, nil
}
