package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-rs/internal/contracts"
)

var (
	ErrInsufficientData = errors.New("insufficient trades for simulation")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Analyze computes historical VaR and a bootstrap of the trade order
// ⭐ SSOT: 거래 리스크 통계는 여기서만 (순수 계산, 저장소 접근 없음)
// Fewer than MinSamples trades yields the VaR view only with Simulated false.
func Analyze(ctx context.Context, trades []contracts.Trade, config MonteCarloConfig) (*TradeRiskReport, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrInsufficientData
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.ReturnPct
	}

	report := &TradeRiskReport{
		RunID:      uuid.New(),
		Trades:     len(trades),
		MeanReturn: Mean(returns),
		StdDev:     StdDev(returns),
		Config:     config,
		CreatedAt:  time.Now(),
	}
	for _, c := range config.ConfidenceLevels {
		report.VaR = append(report.VaR, CalculateVaR(returns, c))
	}

	if len(returns) < config.MinSamples {
		return report, nil
	}

	finals, drawdowns, err := NewMonteCarloSimulator(config).Simulate(ctx, returns)
	if err != nil {
		return nil, err
	}

	losses := 0
	for _, f := range finals {
		if f < 0 {
			losses++
		}
	}
	report.FinalReturn = distribution(finals)
	report.MaxDrawdown = distribution(drawdowns)
	report.LossProb = float64(losses) / float64(len(finals))
	report.Simulated = true
	return report, nil
}

func validate(config MonteCarloConfig) error {
	if config.NumSimulations < 1 {
		return fmt.Errorf("%w: num_simulations must be positive", ErrInvalidConfig)
	}
	if config.PositionFraction <= 0 || config.PositionFraction > 1 {
		return fmt.Errorf("%w: position_fraction must be in (0, 1]", ErrInvalidConfig)
	}
	for _, c := range config.ConfidenceLevels {
		if c <= 0 || c >= 1 {
			return fmt.Errorf("%w: confidence %v outside (0, 1)", ErrInvalidConfig, c)
		}
	}
	return nil
}
