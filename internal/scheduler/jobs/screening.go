package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Walker runs a walk-forward over a date range
type Walker interface {
	Run(ctx context.Context, config backtest.RunConfig) (*backtest.RunResult, error)
}

// WalkerFactory builds a walker over a freshly loaded archive
type WalkerFactory func(ctx context.Context) (Walker, error)

// DailyScreenJob ranks and screens the most recent sessions after the close
// ⭐ SSOT: 일일 스크리닝 스케줄은 이 Job에서만
// Sessions already in the results store are loaded, not recomputed, so each
// run only does the work for sessions added since the last one.
type DailyScreenJob struct {
	build         WalkerFactory
	schedule      string
	lookbackDays  int
	simulateExits bool
	now           func() time.Time
	logger        *logger.Logger
}

// NewDailyScreenJob creates a new daily screen job
func NewDailyScreenJob(build WalkerFactory, schedule string, lookbackDays int, simulateExits bool, log *logger.Logger) *DailyScreenJob {
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	return &DailyScreenJob{
		build:         build,
		schedule:      schedule,
		lookbackDays:  lookbackDays,
		simulateExits: simulateExits,
		now:           time.Now,
		logger:        log.WithField("job", "daily_screen"),
	}
}

// Name returns the job name
func (j *DailyScreenJob) Name() string {
	return "daily_screen"
}

// Schedule returns the cron schedule
func (j *DailyScreenJob) Schedule() string {
	return j.schedule
}

// Run walks the lookback window one session at a time
func (j *DailyScreenJob) Run(ctx context.Context) error {
	walker, err := j.build(ctx)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	end := j.now()
	result, err := walker.Run(ctx, backtest.RunConfig{
		Start:         end.AddDate(0, 0, -j.lookbackDays),
		End:           end,
		Stride:        backtest.DailyStride,
		SimulateExits: j.simulateExits,
	})
	if err != nil {
		return fmt.Errorf("daily screen: %w", err)
	}

	passed := 0
	if n := len(result.Sessions); n > 0 {
		passed = len(result.Sessions[n-1].Screen)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID.String(),
		"processed":   result.Processed,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"last_passed": passed,
	}).Info("Daily screen completed")

	if result.Processed == 0 && result.Failed > 0 {
		return fmt.Errorf("daily screen: all %d sessions failed", result.Failed)
	}
	return nil
}
