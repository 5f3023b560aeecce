package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/divsage/internal/ingest"
	"github.com/wonny/divsage/pkg/logger"
)

// MarketRefreshJob refreshes fundamentals, prices and dividend
// history for all tracked tickers after the US close.
type MarketRefreshJob struct {
	worker *ingest.Worker
	logger *logger.Logger
}

// NewMarketRefreshJob creates a new market refresh job
func NewMarketRefreshJob(worker *ingest.Worker, log *logger.Logger) *MarketRefreshJob {
	return &MarketRefreshJob{worker: worker, logger: log}
}

// Name returns the job name
func (j *MarketRefreshJob) Name() string {
	return "market_refresh"
}

// Schedule runs at 22:30 UTC on weekdays, after the US market close
func (j *MarketRefreshJob) Schedule() string {
	return "0 30 22 * * 1-5"
}

// Run executes the refresh pass
func (j *MarketRefreshJob) Run(ctx context.Context) error {
	result, err := j.worker.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("market refresh failed: %w", err)
	}
	if result.Failed > 0 && result.Refreshed == 0 {
		return fmt.Errorf("market refresh failed for all %d tickers", result.Failed)
	}
	return nil
}
