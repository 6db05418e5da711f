package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-rs/internal/fundamentals"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// Prefetcher warms the fundamentals cache
type Prefetcher interface {
	Prefetch(ctx context.Context, tickers []string, workers int) (*fundamentals.PrefetchReport, error)
}

// TickerSource lists the tickers to refresh
type TickerSource func(ctx context.Context) ([]string, error)

// FundamentalsJob refreshes cached fundamentals outside the screening loop
type FundamentalsJob struct {
	prefetcher Prefetcher
	tickers    TickerSource
	schedule   string
	workers    int
	logger     *logger.Logger
}

// NewFundamentalsJob creates a new fundamentals refresh job
func NewFundamentalsJob(p Prefetcher, tickers TickerSource, schedule string, workers int, log *logger.Logger) *FundamentalsJob {
	return &FundamentalsJob{
		prefetcher: p,
		tickers:    tickers,
		schedule:   schedule,
		workers:    workers,
		logger:     log.WithField("job", "fundamentals_refresh"),
	}
}

// Name returns the job name
func (j *FundamentalsJob) Name() string {
	return "fundamentals_refresh"
}

// Schedule returns the cron schedule
func (j *FundamentalsJob) Schedule() string {
	return j.schedule
}

// Run prefetches every listed ticker
func (j *FundamentalsJob) Run(ctx context.Context) error {
	tickers, err := j.tickers(ctx)
	if err != nil {
		return fmt.Errorf("list tickers: %w", err)
	}

	report, err := j.prefetcher.Prefetch(ctx, tickers, j.workers)
	if err != nil {
		return fmt.Errorf("prefetch fundamentals: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"requested": report.Requested,
		"cached":    report.Cached,
		"fetched":   report.Fetched,
		"failed":    report.Failed,
	}).Info("Fundamentals refreshed")
	return nil
}
