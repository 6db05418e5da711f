package selection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/s2_signals"
)

// Built-in gate types
const (
	GateTrendTemplate  = "trend_template"
	GatePriceAboveSMA  = "price_above_sma"
	GateBreakout       = "breakout"
	GateVolumeSurge    = "volume_surge"
	GateRelativeVolume = "relative_volume"
	GateMarketCap      = "market_cap"
	GateBeta           = "beta"
	GateMarketRegime   = "market_regime"
)

// GateSpec declares one gate of a rule set
type GateSpec struct {
	Name    string             `yaml:"name" json:"name"`
	Type    string             `yaml:"type" json:"type"`
	Enabled bool               `yaml:"enabled" json:"enabled"`
	Params  map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// Param returns a parameter or its default
func (g GateSpec) Param(key string, def float64) float64 {
	if v, ok := g.Params[key]; ok {
		return v
	}
	return def
}

// Input is everything a gate may inspect for one candidate
type Input struct {
	Ticker  string
	Signals *s2_signals.SignalSet
	Market  *s2_signals.SignalSet // 변동성 지수, 없으면 nil

	lookup       func() contracts.Fundamentals
	once         sync.Once
	fundamentals contracts.Fundamentals
}

// NewInput creates a gate input, lookup runs at most once and only when a gate asks
func NewInput(ticker string, sigs, market *s2_signals.SignalSet, lookup func() contracts.Fundamentals) *Input {
	return &Input{Ticker: ticker, Signals: sigs, Market: market, lookup: lookup}
}

// Fundamentals returns the candidate's fundamentals
func (in *Input) Fundamentals() contracts.Fundamentals {
	in.once.Do(func() {
		if in.lookup == nil {
			in.fundamentals = contracts.UnknownFundamentals(in.Ticker)
			return
		}
		in.fundamentals = in.lookup()
	})
	return in.fundamentals
}

// Gate is one toggleable screening condition
type Gate interface {
	Name() string
	Evaluate(in *Input) (score float64, pass bool)
}

// Constructor builds a gate from its spec
type Constructor func(spec GateSpec) (Gate, error)

// registry is read-only after package init
var registry = map[string]Constructor{
	GateTrendTemplate:  newTrendTemplate,
	GatePriceAboveSMA:  newPriceAboveSMA,
	GateBreakout:       newBreakout,
	GateVolumeSurge:    newVolumeSurge,
	GateRelativeVolume: newRelativeVolume,
	GateMarketCap:      newMarketCap,
	GateBeta:           newBeta,
	GateMarketRegime:   newMarketRegime,
}

// KnownTypes returns registered gate types sorted
func KnownTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsKnownType reports whether a gate type is registered
func IsKnownType(gateType string) bool {
	_, ok := registry[gateType]
	return ok
}

// BuildGates constructs the enabled gates in declaration order
func BuildGates(specs []GateSpec) ([]Gate, error) {
	gates := make([]Gate, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if spec.Name == "" {
			spec.Name = spec.Type
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate gate name %q", spec.Name)
		}
		seen[spec.Name] = true

		if !spec.Enabled {
			continue
		}

		c, ok := registry[spec.Type]
		if !ok {
			return nil, fmt.Errorf("gate %q: unknown type %q", spec.Name, spec.Type)
		}

		g, err := c(spec)
		if err != nil {
			return nil, fmt.Errorf("gate %q: %w", spec.Name, err)
		}
		gates = append(gates, g)
	}
	return gates, nil
}

// DefaultGates returns the stock rule set
// 가격 > SMA22, 가격 > SMA200, 거래량 동반 양봉 돌파, 시가총액 100억~1000억 달러
func DefaultGates() []GateSpec {
	return []GateSpec{
		{Name: "above_sma22", Type: GatePriceAboveSMA, Enabled: true, Params: map[string]float64{"window": 22}},
		{Name: "above_sma200", Type: GatePriceAboveSMA, Enabled: true, Params: map[string]float64{"window": 200}},
		{Name: "trend_template", Type: GateTrendTemplate, Enabled: false, Params: map[string]float64{"min_score": 4, "rising_shift": 20}},
		{Name: "breakout", Type: GateBreakout, Enabled: true, Params: map[string]float64{"lookback": 2, "min_change_pct": 1}},
		{Name: "volume_surge", Type: GateVolumeSurge, Enabled: true, Params: map[string]float64{"lookback": 2, "avg_window": 100, "multiple": 2}},
		{Name: "relative_volume", Type: GateRelativeVolume, Enabled: false, Params: map[string]float64{"window": 50, "min_ratio": 1.5}},
		{Name: "market_regime", Type: GateMarketRegime, Enabled: false, Params: map[string]float64{"ceiling": 30, "require_below_sma": 1, "sma_window": 50}},
		{Name: "beta", Type: GateBeta, Enabled: false, Params: map[string]float64{"min": 0.5, "max": 2.5}},
		{Name: "market_cap", Type: GateMarketCap, Enabled: true, Params: map[string]float64{"min": 10e9, "max": 100e9}},
	}
}

// positive reads a parameter that must be a positive integer
func positive(spec GateSpec, key string, def float64) (int, error) {
	v := spec.Param(key, def)
	if v < 1 || v != float64(int(v)) {
		return 0, fmt.Errorf("param %s must be a positive integer, got %v", key, v)
	}
	return int(v), nil
}
