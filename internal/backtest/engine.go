package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/metrics"
	"github.com/wonny/aegis-rs/internal/s0_data"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// SessionRanker ranks a snapshot and reports where the table came from
type SessionRanker interface {
	RankAt(ctx context.Context, snapshot *contracts.Snapshot, requested time.Time) (*contracts.RankingTable, string, error)
}

// RunConfig holds walk-forward settings
type RunConfig struct {
	Start         time.Time
	End           time.Time
	Stride        Stride
	SimulateExits bool
	Rescreen      bool // 저장된 스크린 무시하고 재계산
}

// SessionResult holds one processed session
type SessionResult struct {
	RequestedDate time.Time                `json:"requested_date"`
	SessionDate   time.Time                `json:"session_date"`
	RankingSource string                   `json:"ranking_source"`
	Ranked        int                      `json:"ranked"`
	Screen        []contracts.ScreenResult `json:"screen"`
	Trades        []contracts.Trade        `json:"trades"`
	NoTrades      int                      `json:"no_trades"`
	Duration      time.Duration            `json:"duration"`
}

// RunResult holds walk-forward results
type RunResult struct {
	RunID     uuid.UUID         `json:"run_id"`
	Config    RunConfig         `json:"-"`
	Sessions  []SessionResult   `json:"sessions"`
	Trades    []contracts.Trade `json:"trades"`
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"` // 이전 날짜와 같은 세션
	Failed    int               `json:"failed"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
}

// EngineOptions holds optional engine collaborators
type EngineOptions struct {
	Location *time.Location
	Metrics  *metrics.Registry
}

// Engine is the walk-forward driver
// ⭐ SSOT: 날짜별 스냅샷 → 랭킹 → 스크린 → 청산 흐름은 여기서만
type Engine struct {
	archive  *contracts.PriceArchive
	calendar *s0_data.Calendar
	ranker   SessionRanker
	screener contracts.Screener
	exits    contracts.ExitSimulator
	store    contracts.ResultsStore
	loc      *time.Location
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewEngine creates a walk-forward engine, store may be nil
func NewEngine(
	archive *contracts.PriceArchive,
	ranker SessionRanker,
	screener contracts.Screener,
	exits contracts.ExitSimulator,
	store contracts.ResultsStore,
	opts EngineOptions,
	log *logger.Logger,
) (*Engine, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	cal, err := s0_data.NewCalendar(archive, loc)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}

	return &Engine{
		archive:  archive,
		calendar: cal,
		ranker:   ranker,
		screener: screener,
		exits:    exits,
		store:    store,
		loc:      loc,
		metrics:  opts.Metrics,
		logger:   log.WithField("module", "backtest_engine"),
	}, nil
}

// Calendar returns the trading calendar of the archive
func (e *Engine) Calendar() *s0_data.Calendar {
	return e.calendar
}

// Run walks from Start to End inclusive, one stride at a time
func (e *Engine) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	if config.Stride.Unit == "" {
		config.Stride = DailyStride
	}
	if err := config.Stride.Validate(); err != nil {
		return nil, err
	}

	start := config.Start
	if start.IsZero() {
		start = s0_data.SessionDate(e.calendar.First(), e.loc)
	}
	end := config.End
	if end.IsZero() {
		end = s0_data.SessionDate(e.calendar.Last(), e.loc)
	}
	start = s0_data.Midnight(start, e.loc)
	end = s0_data.Midnight(end, e.loc)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	result := &RunResult{
		RunID:     uuid.New(),
		Config:    config,
		StartTime: time.Now(),
	}
	log := e.logger.WithField("run_id", result.RunID.String())

	log.WithFields(map[string]interface{}{
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"stride":   config.Stride.String(),
		"simulate": config.SimulateExits,
	}).Info("Starting walk-forward")

	prev := int64(-1)
	for d := start; !d.After(end); d = config.Stride.Next(d) {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(result.StartTime)
			return result, err
		}

		// 주말/휴일은 직전 세션과 같은 타임스탬프로 매핑됨
		ts := e.calendar.Nearest(d)
		if ts == prev {
			result.Skipped++
			continue
		}
		prev = ts

		sr, err := e.RunSession(ctx, d, config)
		if err != nil {
			if errors.Is(err, contracts.ErrBenchmarkMissing) || ctx.Err() != nil {
				result.Duration = time.Since(result.StartTime)
				return result, err
			}
			result.Failed++
			log.WithError(err).WithField("date", d.Format("2006-01-02")).Error("Session failed")
			continue
		}

		result.Processed++
		result.Sessions = append(result.Sessions, *sr)
		result.Trades = append(result.Trades, sr.Trades...)
		e.metrics.SessionProcessed()

		log.WithFields(map[string]interface{}{
			"date":     d.Format("2006-01-02"),
			"session":  sr.SessionDate.Format("2006-01-02"),
			"ranking":  sr.RankingSource,
			"ranked":   sr.Ranked,
			"screened": len(sr.Screen),
			"trades":   len(sr.Trades),
		}).Info("Session processed")
	}

	result.Duration = time.Since(result.StartTime)

	log.WithFields(map[string]interface{}{
		"duration":  result.Duration.Seconds(),
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"trades":    len(result.Trades),
	}).Info("Walk-forward completed")

	return result, nil
}

// RunSession processes the session nearest to requested
func (e *Engine) RunSession(ctx context.Context, requested time.Time, config RunConfig) (*SessionResult, error) {
	start := time.Now()

	ts := e.calendar.Nearest(requested)
	snapshot := s0_data.TakeSnapshot(e.archive, ts, e.loc)
	session := snapshot.SessionDate

	table, source, err := e.ranker.RankAt(ctx, snapshot, requested)
	if err != nil {
		return nil, err
	}

	screen, err := e.screen(ctx, snapshot, table, config.Rescreen)
	if err != nil {
		return nil, err
	}

	sr := &SessionResult{
		RequestedDate: requested,
		SessionDate:   session,
		RankingSource: source,
		Ranked:        len(table.Rows),
		Screen:        screen,
	}

	if config.SimulateExits {
		sr.Trades, sr.NoTrades = e.simulate(screen, ts, session)
		if e.store != nil {
			if err := e.store.SaveTrades(ctx, session, sr.Trades); err != nil {
				return nil, fmt.Errorf("save trades %s: %w", session.Format("2006-01-02"), err)
			}
		}
	}

	sr.Duration = time.Since(start)
	return sr, nil
}

// screen loads the stored screen for the session or computes and saves it
func (e *Engine) screen(ctx context.Context, snapshot *contracts.Snapshot, table *contracts.RankingTable, rescreen bool) ([]contracts.ScreenResult, error) {
	session := snapshot.SessionDate

	if e.store != nil && !rescreen {
		stored, err := e.store.LoadScreen(ctx, session)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			e.logger.WithError(err).WithField("session", session.Format("2006-01-02")).Warn("Stored screen unreadable, recomputing")
		}
	}

	results, err := e.screener.Screen(ctx, snapshot, table)
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", session.Format("2006-01-02"), err)
	}

	if e.store != nil {
		if err := e.store.SaveScreen(ctx, session, results); err != nil {
			return nil, fmt.Errorf("save screen %s: %w", session.Format("2006-01-02"), err)
		}
	}
	return results, nil
}

// simulate replays each passed ticker from the session close over the full archive
func (e *Engine) simulate(screen []contracts.ScreenResult, entry int64, session time.Time) ([]contracts.Trade, int) {
	trades := make([]contracts.Trade, 0, len(screen))
	noTrades := 0

	for _, r := range screen {
		if !r.Passed {
			continue
		}
		trade := e.exits.Simulate(e.archive.Get(r.Ticker), entry)
		if trade.IsNoTrade() {
			noTrades++
			e.metrics.TradeSimulated(string(contracts.ExitNoTrade))
			e.logger.WithFields(map[string]interface{}{
				"ticker":  r.Ticker,
				"session": session.Format("2006-01-02"),
			}).Debug("No trade")
			continue
		}
		trade.SessionDate = session
		trades = append(trades, trade)
		e.metrics.TradeSimulated(string(trade.ExitReason))
	}
	return trades, noTrades
}
