package selection

import (
	"fmt"
)

// trendTemplate counts satisfied trend-stack conditions
type trendTemplate struct {
	name        string
	minScore    float64
	risingShift int
	useSMA10    bool
}

func newTrendTemplate(spec GateSpec) (Gate, error) {
	shift, err := positive(spec, "rising_shift", 20)
	if err != nil {
		return nil, err
	}
	g := &trendTemplate{
		name:        spec.Name,
		risingShift: shift,
		useSMA10:    spec.Param("use_sma10", 0) != 0,
	}
	limit := 4.0
	if g.useSMA10 {
		limit = 5
	}
	g.minScore = spec.Param("min_score", limit)
	if g.minScore < 0 || g.minScore > limit {
		return nil, fmt.Errorf("min_score must be within [0, %v]", limit)
	}
	return g, nil
}

func (g *trendTemplate) Name() string { return g.name }

func (g *trendTemplate) Evaluate(in *Input) (float64, bool) {
	s := in.Signals
	last, _ := s.LastClose()
	sma50, ok50 := s.SMA(50, 0)
	sma150, ok150 := s.SMA(150, 0)
	sma200, ok200 := s.SMA(200, 0)
	prev200, okPrev := s.SMA(200, g.risingShift)

	score := 0.0
	if ok50 && last > sma50 {
		score++
	}
	if ok50 && ok150 && sma50 > sma150 {
		score++
	}
	if ok150 && ok200 && sma150 > sma200 {
		score++
	}
	if ok200 && okPrev && sma200 > prev200 {
		score++
	}
	if g.useSMA10 {
		if sma10, ok := s.SMA(10, 0); ok && last > sma10 {
			score++
		}
	}
	return score, score >= g.minScore
}

// priceAboveSMA passes when the last close is above SMA(window)
type priceAboveSMA struct {
	name   string
	window int
}

func newPriceAboveSMA(spec GateSpec) (Gate, error) {
	window, err := positive(spec, "window", 0)
	if err != nil {
		return nil, err
	}
	return &priceAboveSMA{name: spec.Name, window: window}, nil
}

func (g *priceAboveSMA) Name() string { return g.name }

func (g *priceAboveSMA) Evaluate(in *Input) (float64, bool) {
	above, ok := in.Signals.CloseToSMA(g.window)
	if !ok {
		return 0, false
	}
	return above, above > 0
}

// breakout checks a positive high-volume session with optional recency and volatility clamps
type breakout struct {
	name             string
	lookback         int
	minChangePct     float64
	minRecency       float64
	volatilityWindow int
	maxDailyMovePct  float64
}

func newBreakout(spec GateSpec) (Gate, error) {
	lookback, err := positive(spec, "lookback", 2)
	if err != nil {
		return nil, err
	}
	g := &breakout{
		name:            spec.Name,
		lookback:        lookback,
		minChangePct:    spec.Param("min_change_pct", 1),
		minRecency:      spec.Param("min_recency", 0),
		maxDailyMovePct: spec.Param("max_daily_move_pct", 0),
	}
	if g.maxDailyMovePct > 0 {
		if g.volatilityWindow, err = positive(spec, "volatility_window", 20); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *breakout) Name() string { return g.name }

func (g *breakout) Evaluate(in *Input) (float64, bool) {
	s := in.Signals
	hv, ok := s.RecentHighVolume(g.lookback)
	if !ok {
		return 0, false
	}
	if hv.ChangePct <= g.minChangePct {
		return hv.ChangePct, false
	}
	if g.minRecency > 0 {
		recency, ok := s.SessionsSinceCloseAtOrAbove()
		if !ok || recency < g.minRecency {
			return hv.ChangePct, false
		}
	}
	if g.maxDailyMovePct > 0 {
		move, ok := s.MaxAbsDailyMove(g.volatilityWindow)
		if !ok || move > g.maxDailyMovePct {
			return hv.ChangePct, false
		}
	}
	return hv.ChangePct, true
}

// volumeSurge passes when the recent high volume exceeds a multiple of the average
type volumeSurge struct {
	name      string
	lookback  int
	avgWindow int
	multiple  float64
}

func newVolumeSurge(spec GateSpec) (Gate, error) {
	lookback, err := positive(spec, "lookback", 2)
	if err != nil {
		return nil, err
	}
	avgWindow, err := positive(spec, "avg_window", 100)
	if err != nil {
		return nil, err
	}
	multiple := spec.Param("multiple", 2)
	if multiple <= 0 {
		return nil, fmt.Errorf("multiple must be positive")
	}
	return &volumeSurge{name: spec.Name, lookback: lookback, avgWindow: avgWindow, multiple: multiple}, nil
}

func (g *volumeSurge) Name() string { return g.name }

func (g *volumeSurge) Evaluate(in *Input) (float64, bool) {
	hv, ok := in.Signals.RecentHighVolume(g.lookback)
	if !ok {
		return 0, false
	}
	avg, ok := in.Signals.AvgVolume(g.avgWindow, 0)
	if !ok || avg == 0 {
		return 0, false
	}
	ratio := hv.Volume / avg
	return ratio, hv.Volume > avg*g.multiple
}

// relativeVolume passes when today's volume is at least min_ratio times the average
type relativeVolume struct {
	name     string
	window   int
	minRatio float64
}

func newRelativeVolume(spec GateSpec) (Gate, error) {
	window, err := positive(spec, "window", 50)
	if err != nil {
		return nil, err
	}
	return &relativeVolume{name: spec.Name, window: window, minRatio: spec.Param("min_ratio", 1.5)}, nil
}

func (g *relativeVolume) Name() string { return g.name }

func (g *relativeVolume) Evaluate(in *Input) (float64, bool) {
	rv, ok := in.Signals.RelativeVolume(g.window)
	if !ok {
		return 0, false
	}
	return rv, rv >= g.minRatio
}

// marketCap passes when min < market cap < max, a zero max means unbounded
type marketCap struct {
	name     string
	min, max float64
}

func newMarketCap(spec GateSpec) (Gate, error) {
	g := &marketCap{name: spec.Name, min: spec.Param("min", 0), max: spec.Param("max", 0)}
	if g.max > 0 && g.max <= g.min {
		return nil, fmt.Errorf("max must exceed min")
	}
	return g, nil
}

func (g *marketCap) Name() string { return g.name }

func (g *marketCap) Evaluate(in *Input) (float64, bool) {
	f := in.Fundamentals()
	if !f.Known || f.MarketCap <= 0 {
		return 0, false
	}
	billions := f.MarketCap / 1e9
	if f.MarketCap <= g.min {
		return billions, false
	}
	if g.max > 0 && f.MarketCap >= g.max {
		return billions, false
	}
	return billions, true
}

// beta passes when min <= beta <= max
type beta struct {
	name     string
	min, max float64
}

func newBeta(spec GateSpec) (Gate, error) {
	g := &beta{name: spec.Name, min: spec.Param("min", 0), max: spec.Param("max", 0)}
	if g.max > 0 && g.max < g.min {
		return nil, fmt.Errorf("max must not be below min")
	}
	return g, nil
}

func (g *beta) Name() string { return g.name }

func (g *beta) Evaluate(in *Input) (float64, bool) {
	f := in.Fundamentals()
	if !f.Known {
		return 0, false
	}
	if f.Beta < g.min || (g.max > 0 && f.Beta > g.max) {
		return f.Beta, false
	}
	return f.Beta, true
}

// marketRegime reads the volatility index: below a ceiling and/or below its own SMA
type marketRegime struct {
	name            string
	ceiling         float64
	requireBelowSMA bool
	smaWindow       int
}

func newMarketRegime(spec GateSpec) (Gate, error) {
	g := &marketRegime{
		name:            spec.Name,
		ceiling:         spec.Param("ceiling", 0),
		requireBelowSMA: spec.Param("require_below_sma", 0) != 0,
	}
	if g.requireBelowSMA {
		w, err := positive(spec, "sma_window", 50)
		if err != nil {
			return nil, err
		}
		g.smaWindow = w
	}
	if g.ceiling <= 0 && !g.requireBelowSMA {
		return nil, fmt.Errorf("set ceiling or require_below_sma")
	}
	return g, nil
}

func (g *marketRegime) Name() string { return g.name }

func (g *marketRegime) Evaluate(in *Input) (float64, bool) {
	if in.Market == nil {
		return 0, false
	}
	level, ok := in.Market.LastClose()
	if !ok {
		return 0, false
	}
	if g.ceiling > 0 && level >= g.ceiling {
		return level, false
	}
	if g.requireBelowSMA {
		sma, ok := in.Market.SMA(g.smaWindow, 0)
		if !ok || level >= sma {
			return level, false
		}
	}
	return level, true
}
