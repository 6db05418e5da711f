package s2_signals

import (
	"context"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Builder creates signal sets for the screening candidates of a snapshot
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	logger *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{
		logger: log.WithStage(contracts.StageSignals.String()),
	}
}

// Build returns one SignalSet per candidate that has snapshot data
func (b *Builder) Build(ctx context.Context, snapshot *contracts.Snapshot, candidates []contracts.RankedTicker) (map[string]*SignalSet, error) {
	sets := make(map[string]*SignalSet, len(candidates))
	missing := 0

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series := snapshot.Get(c.Ticker)
		if series.Len() == 0 {
			missing++
			b.logger.WithField("ticker", c.Ticker).Debug("Ranked ticker has no snapshot data")
			continue
		}
		sets[c.Ticker] = NewSignalSet(series)
	}

	b.logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"built":      len(sets),
		"missing":    missing,
	}).Debug("Signal sets built")

	return sets, nil
}

// Market returns the signal set of the volatility index, nil when absent
func (b *Builder) Market(snapshot *contracts.Snapshot) *SignalSet {
	series := snapshot.Get(snapshot.VolatilityIndex)
	if series.Len() == 0 {
		return nil
	}
	return NewSignalSet(series)
}
